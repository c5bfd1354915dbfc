package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"blindseeker/internal/transport"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Requester sends one GET with the given query parameters.
// *transport.Session satisfies it.
type Requester interface {
	Get(ctx context.Context, params url.Values) (*transport.Response, error)
}

// MatchMode selects where the success marker is looked for.
type MatchMode int

const (
	// MatchBody searches the raw response body.
	MatchBody MatchMode = iota
	// MatchText searches the visible text of the HTML document.
	MatchText
)

// ParseMatchMode maps "body" or "text" to a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "body":
		return MatchBody, nil
	case "text":
		return MatchText, nil
	default:
		return MatchBody, fmt.Errorf("unknown match mode %q", s)
	}
}

// Boolean decides truth by the presence of a success marker in the
// response to a request carrying the condition in a query parameter.
type Boolean struct {
	requester Requester
	param     string
	fixed     url.Values
	success   string
	match     MatchMode
	policy    FailurePolicy
	logger    *zap.Logger
}

// NewBoolean builds a boolean oracle from registry params.
func NewBoolean(p Params) (*Boolean, error) {
	if p.Requester == nil {
		return nil, errors.New("boolean oracle: requester is required")
	}
	if p.Param == "" {
		return nil, errors.New("boolean oracle: injection parameter is required")
	}
	if p.Success == "" {
		return nil, errors.New("boolean oracle: success indicator is required")
	}

	fixed := url.Values{}
	for k, v := range p.Fixed {
		fixed.Set(k, v)
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Boolean{
		requester: p.Requester,
		param:     p.Param,
		fixed:     fixed,
		success:   p.Success,
		match:     p.Match,
		policy:    p.Policy,
		logger:    logger,
	}, nil
}

// Name implements Oracle.
func (b *Boolean) Name() string { return "boolean" }

// Ask implements Oracle.
func (b *Boolean) Ask(ctx context.Context, c Condition) (bool, error) {
	params := make(url.Values, len(b.fixed)+1)
	for k, vs := range b.fixed {
		params[k] = append([]string(nil), vs...)
	}
	params.Set(b.param, string(c))

	resp, err := b.requester.Get(ctx, params)
	if err != nil {
		return settle(ctx, b.logger, b.policy, b.Name(), c, err)
	}

	var ok bool
	switch b.match {
	case MatchText:
		ok = strings.Contains(visibleText(resp.Body), normalizeSpace(b.success))
	default:
		ok = bytes.Contains(resp.Body, []byte(b.success))
	}

	b.logger.Debug("Asked",
		zap.String("condition", string(c)),
		zap.Int("status", resp.StatusCode),
		zap.Bool("answer", ok))
	return ok, nil
}

// visibleText returns the document text outside script and style
// elements with runs of whitespace collapsed to one space.
func visibleText(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return normalizeSpace(sb.String())
		case html.StartTagToken:
			if name, _ := z.TagName(); isHidden(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHidden(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func isHidden(tag []byte) bool {
	switch string(tag) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
