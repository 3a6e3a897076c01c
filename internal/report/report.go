// Package report renders run summaries and the history for the terminal or
// as JSON/YAML for scripts.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"mailsweep/internal/model"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingBottom(1)

	previewStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Run is the machine-readable envelope of one run.
type Run struct {
	RunID   string           `json:"run_id" yaml:"run_id"`
	Query   string           `json:"query" yaml:"query"`
	Summary model.RunSummary `json:"summary" yaml:"summary"`
}

// Write renders r in format.
func Write(w io.Writer, format string, r Run) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	case FormatText, "":
		_, err := io.WriteString(w, Text(r))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Text renders r for humans.
func Text(r Run) string {
	s := r.Summary
	var b strings.Builder

	title := "Unsubscribe summary"
	if r.RunID != "" {
		title += " (run " + r.RunID + ")"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if s.Preview {
		b.WriteString(previewStyle.Render("PREVIEW: nothing was changed; counts show planned actions"))
		b.WriteString("\n")
	}

	rows := []struct {
		label string
		n     int
	}{
		{"Messages scanned", s.Scanned},
		{"Fetch failures", s.FetchFailed},
		{"Unique senders", s.Senders},
		{"Senders processed", s.Processed},
		{"Already attempted", s.Skipped},
		{"No unsubscribe link", s.NoLinks},
		{"Repeat messages", s.Duplicates},
		{"Unsubscribed", s.Succeeded},
		{"Failed", s.Failed},
		{"Labeled", s.Labeled},
		{"Trashed", s.Trashed},
		{"Deleted", s.Deleted},
		{"Cleanup failures", s.CleanupFailed},
	}
	for _, row := range rows {
		if row.n == 0 && row.label != "Messages scanned" {
			continue
		}
		fmt.Fprintf(&b, "  %-22s %s\n", row.label+":", humanize.Comma(int64(row.n)))
	}

	if len(s.Outcomes) > 0 {
		b.WriteString("\n")
		for _, o := range s.Outcomes {
			fmt.Fprintf(&b, "  %s %s <%s> (%s)", statusMark(o.Status), o.Name, o.Email, plural(o.Messages, "message"))
			if o.Action != model.ActionNone {
				fmt.Fprintf(&b, " -> %s", o.Action)
			}
			b.WriteString("\n")
			if o.Link != "" {
				b.WriteString("      " + dimStyle.Render(o.Link) + "\n")
			}
		}
	}
	return b.String()
}

func statusMark(status string) string {
	switch status {
	case model.StatusUnsubscribed:
		return okStyle.Render("[ok]     ")
	case model.StatusFailed:
		return failStyle.Render("[failed] ")
	case model.StatusPlanned:
		return previewStyle.Render("[plan]   ")
	case model.StatusKnown:
		return dimStyle.Render("[seen]   ")
	default:
		return dimStyle.Render("[no link]")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}

// WriteHistory renders the recorded attempts. now anchors relative times.
func WriteHistory(w io.Writer, format string, records []model.HistoryRecord, now time.Time) error {
	switch format {
	case FormatJSON:
		if records == nil {
			records = []model.HistoryRecord{}
		}
		return writeJSON(w, records)
	case FormatYAML:
		return writeYAML(w, records)
	case FormatText, "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No unsubscribe attempts recorded.")
		return err
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s recorded", plural(len(records), "sender"))))
	b.WriteString("\n")
	for _, r := range records {
		mark := okStyle.Render("ok    ")
		if !r.Success {
			mark = failStyle.Render("failed")
		}
		when := r.Timestamp
		if t, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
			when = humanize.RelTime(t, now, "ago", "from now")
		}
		fmt.Fprintf(&b, "  %s  %-36s %-24s %s\n", mark, r.Email, r.Name, dimStyle.Render(when))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
