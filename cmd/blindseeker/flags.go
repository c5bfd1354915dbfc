package main

import (
	"fmt"
	"strings"

	"blindseeker/internal/config"

	"github.com/spf13/cobra"
)

// flagValues holds the raw values of the configuration flags. They are
// applied over the loaded config only when set on the command line.
var flagValues struct {
	url         string
	cookie      string
	success     string
	param       string
	fixed       []string
	oracleKind  string
	match       string
	strict      bool
	votes       int
	dialect     string
	expr        string
	prefix      string
	suffix      string
	maxLength   int
	concurrency int
	rate        float64
	timeout     string
	format      string
	history     string
	audit       string
}

func registerFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.PersistentFlags()

	f.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	f.StringVar(&configPath, "config", "", "YAML config file")

	// Target
	f.StringVarP(&flagValues.url, "url", "u", "", "Target URL (or BLINDSEEKER_URL)")
	f.StringVarP(&flagValues.cookie, "cookie", "c", "", `Session cookies, e.g. "PHPSESSID=abc; security=low"`)
	f.StringVar(&flagValues.param, "param", def.Target.Param, "Query parameter carrying the condition")
	f.StringArrayVar(&flagValues.fixed, "fixed", nil, "Extra query parameter sent with every request, k=v (repeatable)")

	// Oracle
	f.StringVarP(&flagValues.success, "success", "s", def.Oracle.Success, "Text whose presence means the condition held")
	f.StringVar(&flagValues.oracleKind, "oracle", def.Oracle.Kind, "Truth oracle kind")
	f.StringVar(&flagValues.match, "match", def.Oracle.Match, "Match the marker against the raw body or visible text (body|text)")
	f.BoolVar(&flagValues.strict, "strict", false, "Abort on transport failures instead of answering false")
	f.IntVar(&flagValues.votes, "votes", def.Oracle.Votes, "Asks per condition, majority wins (odd)")

	// Extraction
	f.StringVar(&flagValues.dialect, "dialect", def.Extraction.Dialect, "SQL dialect (mysql|postgres|mssql|sqlite)")
	f.StringVar(&flagValues.expr, "expr", "", "SQL expression to extract (default: current database name)")
	f.StringVar(&flagValues.prefix, "prefix", "", "Override the injection prefix")
	f.StringVar(&flagValues.suffix, "suffix", "", "Override the comment suffix")
	f.IntVar(&flagValues.maxLength, "max-length", def.Extraction.MaxLength, "Highest length probed")
	f.IntVarP(&flagValues.concurrency, "concurrency", "t", def.Extraction.Concurrency, "Positions searched at once")

	// Transport
	f.Float64Var(&flagValues.rate, "rate", 0, "Requests per second, 0 for unlimited")
	f.StringVar(&flagValues.timeout, "timeout", def.Transport.Timeout, "Per-request timeout")

	// Output
	f.StringVar(&flagValues.format, "format", def.Output.Format, "Report format (text|json|markdown)")
	f.StringVar(&flagValues.history, "history", "", "SQLite file recording every run")
	f.StringVar(&flagValues.audit, "audit", "", "JSON-lines file receiving every oracle ask")
}

// applyFlags copies explicitly set flags over c.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	set := cmd.Flags().Changed

	if set("url") {
		c.Target.URL = flagValues.url
	}
	if set("cookie") {
		c.Target.Cookie = flagValues.cookie
	}
	if set("param") {
		c.Target.Param = flagValues.param
	}
	if set("fixed") {
		fixed, err := parseFixed(flagValues.fixed)
		if err != nil {
			return err
		}
		if c.Target.FixedParams == nil {
			c.Target.FixedParams = map[string]string{}
		}
		for k, v := range fixed {
			c.Target.FixedParams[k] = v
		}
	}
	if set("success") {
		c.Oracle.Success = flagValues.success
	}
	if set("oracle") {
		c.Oracle.Kind = flagValues.oracleKind
	}
	if set("match") {
		c.Oracle.Match = flagValues.match
	}
	if set("strict") {
		c.Oracle.Strict = flagValues.strict
	}
	if set("votes") {
		c.Oracle.Votes = flagValues.votes
	}
	if set("dialect") {
		c.Extraction.Dialect = flagValues.dialect
	}
	if set("expr") {
		c.Extraction.Expression = flagValues.expr
	}
	if set("prefix") {
		c.Extraction.Prefix = flagValues.prefix
	}
	if set("suffix") {
		c.Extraction.Suffix = flagValues.suffix
	}
	if set("max-length") {
		c.Extraction.MaxLength = flagValues.maxLength
	}
	if set("concurrency") {
		c.Extraction.Concurrency = flagValues.concurrency
	}
	if set("rate") {
		c.Transport.RatePerSecond = flagValues.rate
	}
	if set("timeout") {
		c.Transport.Timeout = flagValues.timeout
	}
	if set("format") {
		c.Output.Format = flagValues.format
	}
	if set("history") {
		c.Store.Path = flagValues.history
	}
	if set("audit") {
		c.Logging.AuditFile = flagValues.audit
	}
	return nil
}

// parseFixed turns k=v pairs into a map.
func parseFixed(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --fixed value %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
