// Package report renders extraction results for the terminal, for
// machines (JSON) and for humans reading Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"blindseeker/internal/extractor"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/glamour"
)

const rule = "----------------------------------------"

// Format names accepted by Write.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Label names the extracted value. database() gets the familiar label.
func Label(expression string) string {
	if expression == "database()" {
		return "Database Name"
	}
	return "Value"
}

// Summary renders the completion block printed after a run.
func Summary(r *extractor.Report) string {
	return SummaryWith(DefaultStyles(), r)
}

// SummaryWith renders Summary using the given styles.
func SummaryWith(s Styles, r *extractor.Report) string {
	var sb strings.Builder
	line := func(label, value string) {
		sb.WriteString(s.Label.Render(label+":") + " " + value + "\n")
	}

	sb.WriteString(s.Rule.Render(rule) + "\n")
	sb.WriteString(s.Title.Render("EXTRACTION COMPLETE") + "\n")
	sb.WriteString(s.Rule.Render(rule) + "\n")
	line(Label(r.Expression), s.Value.Render(r.Value))
	if r.Expression != "database()" {
		line("Expression", r.Expression)
	}
	line("Time Taken", fmt.Sprintf("%.4f seconds", r.Duration.Seconds()))
	line("Throughput", fmt.Sprintf("%.2f req/sec (approx)", r.ApproxThroughput()))
	line("Oracle Calls", fmt.Sprintf("%d (%.2f req/sec measured)", r.OracleCalls, r.Throughput()))
	sb.WriteString(s.Note.Render(fmt.Sprintf("run %s, %d positions, concurrency %d", r.RunID, r.Length, r.Concurrency)) + "\n")
	sb.WriteString(s.Rule.Render(rule))
	return sb.String()
}

// View is the serialised form of a report.
type View struct {
	RunID            string    `json:"run_id"`
	Oracle           string    `json:"oracle"`
	Expression       string    `json:"expression"`
	Value            string    `json:"value"`
	Length           int       `json:"length"`
	Concurrency      int       `json:"concurrency"`
	StartedAt        time.Time `json:"started_at"`
	DurationSeconds  float64   `json:"duration_seconds"`
	ElapsedSeconds   float64   `json:"elapsed_seconds"`
	LengthProbes     int64     `json:"length_probes"`
	OracleCalls      int64     `json:"oracle_calls"`
	ApproxRequests   int       `json:"approx_requests"`
	ApproxThroughput float64   `json:"approx_throughput"`
	Throughput       float64   `json:"throughput"`
}

// NewView flattens a report for serialisation.
func NewView(r *extractor.Report) View {
	return View{
		RunID:            r.RunID,
		Oracle:           r.Oracle,
		Expression:       r.Expression,
		Value:            r.Value,
		Length:           r.Length,
		Concurrency:      r.Concurrency,
		StartedAt:        r.StartedAt.UTC(),
		DurationSeconds:  r.Duration.Seconds(),
		ElapsedSeconds:   r.Elapsed.Seconds(),
		LengthProbes:     r.LengthProbes,
		OracleCalls:      r.OracleCalls,
		ApproxRequests:   r.ApproxRequests,
		ApproxThroughput: r.ApproxThroughput(),
		Throughput:       r.Throughput(),
	}
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *extractor.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewView(r))
}

// Markdown returns the report as a Markdown document.
func Markdown(r *extractor.Report) string {
	var sb strings.Builder
	sb.WriteString("# Extraction Complete\n\n")
	fmt.Fprintf(&sb, "**%s:** `%s`\n\n", Label(r.Expression), r.Value)
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Expression | `%s` |\n", r.Expression)
	fmt.Fprintf(&sb, "| Length | %d |\n", r.Length)
	fmt.Fprintf(&sb, "| Concurrency | %d |\n", r.Concurrency)
	fmt.Fprintf(&sb, "| Time Taken | %.4f s |\n", r.Duration.Seconds())
	fmt.Fprintf(&sb, "| Throughput (approx) | %.2f req/sec |\n", r.ApproxThroughput())
	fmt.Fprintf(&sb, "| Oracle Calls | %d |\n", r.OracleCalls)
	fmt.Fprintf(&sb, "| Length Probes | %d |\n", r.LengthProbes)
	fmt.Fprintf(&sb, "\n_Run `%s` via oracle `%s`._\n", r.RunID, r.Oracle)
	return sb.String()
}

// RenderMarkdown renders Markdown for a terminal. An empty style picks
// one from the terminal background.
func RenderMarkdown(r *extractor.Report, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(Markdown(r))
}

// Write emits the report to w in the named format.
func Write(w io.Writer, format string, r *extractor.Report) error {
	switch format {
	case FormatJSON:
		return JSON(w, r)
	case FormatMarkdown:
		out, err := RenderMarkdown(r, "", 80)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatText, "":
		_, err := fmt.Fprintln(w, Summary(r))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Progress renders per-position progress lines with a bar.
type Progress struct {
	total int
	done  int
	bar   progress.Model
}

// NewProgress creates a tracker for total positions.
func NewProgress(total int) *Progress {
	return &Progress{
		total: total,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(24), progress.WithoutPercentage()),
	}
}

// Line records one resolved position and returns its progress line.
// Callers serialize calls.
func (p *Progress) Line(pos int, ch byte) string {
	p.done++
	return ProgressLine(pos, ch) + " " + p.bar.ViewAs(p.Fraction()) + fmt.Sprintf(" %d/%d", p.done, p.total)
}

// Fraction is the share of positions resolved so far.
func (p *Progress) Fraction() float64 {
	if p.total <= 0 {
		return 0
	}
	return float64(p.done) / float64(p.total)
}

// ProgressLine is the plain per-position line.
func ProgressLine(pos int, ch byte) string {
	return fmt.Sprintf("[+] Progress: Found char at pos %d: %c", pos, ch)
}
