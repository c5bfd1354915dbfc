package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"blindseeker/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *extractor.Report {
	return &extractor.Report{
		RunID:          "run-1",
		Oracle:         "boolean",
		Expression:     "database()",
		Value:          "dvwa",
		Length:         4,
		Concurrency:    20,
		StartedAt:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:       500 * time.Millisecond,
		Elapsed:        time.Second,
		LengthProbes:   4,
		OracleCalls:    32,
		ApproxRequests: 28,
	}
}

func TestSummary(t *testing.T) {
	out := Summary(sampleReport())

	assert.Contains(t, out, "EXTRACTION COMPLETE")
	assert.Contains(t, out, "Database Name:")
	assert.Contains(t, out, "dvwa")
	assert.Contains(t, out, "0.5000 seconds")
	assert.Contains(t, out, "56.00 req/sec (approx)")
	assert.Contains(t, out, "32 (56.00 req/sec measured)")
	assert.NotContains(t, out, "Expression:")
}

func TestSummary_CustomExpression(t *testing.T) {
	r := sampleReport()
	r.Expression = "current_user"

	out := Summary(r)
	assert.Contains(t, out, "Value:")
	assert.Contains(t, out, "current_user")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleReport()))

	var got View
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "dvwa", got.Value)
	assert.Equal(t, 4, got.Length)
	assert.InDelta(t, 0.5, got.DurationSeconds, 1e-9)
	assert.InDelta(t, 56.0, got.ApproxThroughput, 1e-9)
	assert.Equal(t, int64(32), got.OracleCalls)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())
	assert.True(t, strings.HasPrefix(md, "# Extraction Complete"))
	assert.Contains(t, md, "**Database Name:** `dvwa`")
	assert.Contains(t, md, "| Oracle Calls | 32 |")
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown(sampleReport(), "notty", 80)
	require.NoError(t, err)
	assert.Contains(t, out, "dvwa")
	assert.Contains(t, out, "Extraction Complete")
}

func TestWrite(t *testing.T) {
	tests := []struct {
		format string
		want   string
		err    bool
	}{
		{FormatText, "EXTRACTION COMPLETE", false},
		{"", "EXTRACTION COMPLETE", false},
		{FormatJSON, `"value": "dvwa"`, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		err := Write(&buf, tt.format, sampleReport())
		if tt.err {
			assert.Error(t, err, tt.format)
			continue
		}
		require.NoError(t, err, tt.format)
		assert.Contains(t, buf.String(), tt.want, tt.format)
	}
}

func TestProgress(t *testing.T) {
	assert.Equal(t, "[+] Progress: Found char at pos 3: w", ProgressLine(3, 'w'))

	p := NewProgress(4)
	line := p.Line(2, 'v')
	assert.True(t, strings.HasPrefix(line, "[+] Progress: Found char at pos 2: v"))
	assert.True(t, strings.HasSuffix(line, "1/4"))
	assert.InDelta(t, 0.25, p.Fraction(), 1e-9)

	assert.Zero(t, NewProgress(0).Fraction())
}
