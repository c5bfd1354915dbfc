package config

// ExtractionConfig tunes the extraction engine.
type ExtractionConfig struct {
	Dialect     string `yaml:"dialect"`
	Expression  string `yaml:"expression"`  // scalar SQL expression to extract
	Prefix      string `yaml:"prefix"`      // overrides the dialect's injection prefix
	Suffix      string `yaml:"suffix"`      // overrides the dialect's comment suffix
	MaxLength   int    `yaml:"max_length"`  // highest length probed
	Concurrency int    `yaml:"concurrency"` // positions searched at once
}

// ValidDialects lists the SQL dialects payloads can be rendered for.
var ValidDialects = []string{"mysql", "postgres", "mssql", "sqlite"}

// TransportConfig configures the HTTP session.
type TransportConfig struct {
	Timeout       string  `yaml:"timeout"`
	UserAgent     string  `yaml:"user_agent"`
	RatePerSecond float64 `yaml:"rate_per_second"` // 0 = unlimited
	MaxBodyBytes  int64   `yaml:"max_body_bytes"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Path string `yaml:"path"` // empty disables history
}

// OutputConfig configures the final report.
type OutputConfig struct {
	Format string `yaml:"format"` // text, json, markdown
}

// ValidOutputFormats lists the supported report formats.
var ValidOutputFormats = []string{"text", "json", "markdown"}
