package payload

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"blindseeker/internal/oracle"
)

// Simulator is an in-memory oracle that evaluates a Builder's
// conditions against a known secret. Conditions it does not recognise
// are false.
type Simulator struct {
	secret string
	delay  time.Duration
	length *regexp.Regexp
	code   *regexp.Regexp
}

// NewSimulator returns a simulator for conditions rendered by b.
// A positive delay is spent on every Ask.
func NewSimulator(b Builder, secret string, delay time.Duration) *Simulator {
	d := b.dialect
	lengthPattern := "^" + regexp.QuoteMeta(d.Prefix+b.lengthExpr()+" = ") + `(\d+)` + regexp.QuoteMeta(d.Suffix) + "$"

	codeHead := regexp.QuoteMeta(d.Prefix + b.codeExpr("{pos}"))
	codeHead = strings.Replace(codeHead, regexp.QuoteMeta("{pos}"), `(\d+)`, 1)
	codePattern := "^" + codeHead + regexp.QuoteMeta(" > ") + `(\d+)` + regexp.QuoteMeta(d.Suffix) + "$"

	return &Simulator{
		secret: secret,
		delay:  delay,
		length: regexp.MustCompile(lengthPattern),
		code:   regexp.MustCompile(codePattern),
	}
}

// Name implements oracle.Oracle.
func (s *Simulator) Name() string { return "simulator" }

// Ask implements oracle.Oracle.
func (s *Simulator) Ask(ctx context.Context, c oracle.Condition) (bool, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return false, err
	}

	if m := s.length.FindStringSubmatch(string(c)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return len(s.secret) == n, nil
	}
	if m := s.code.FindStringSubmatch(string(c)); m != nil {
		pos, _ := strconv.Atoi(m[1])
		mid, _ := strconv.Atoi(m[2])
		if pos < 1 || pos > len(s.secret) {
			return false, nil
		}
		return int(s.secret[pos-1]) > mid, nil
	}
	return false, nil
}
