package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/plagiarism"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	riskStyles  = map[string]lipgloss.Style{
		plagiarism.RiskSuspicious:       cellStyle.Foreground(lipgloss.Color("3")),
		plagiarism.RiskHighlySuspicious: cellStyle.Foreground(lipgloss.Color("208")),
		plagiarism.RiskNearCopy:         cellStyle.Foreground(lipgloss.Color("1")).Bold(true),
	}
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// Render writes the run result in the requested format.
func Render(w io.Writer, result *plagiarism.RunResult, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		_, err := io.WriteString(w, Table(result))
		return err
	}
}

// Table renders the ranked report followed by failures and a one-line summary.
func Table(result *plagiarism.RunResult) string {
	out := ""
	if len(result.Report) == 0 {
		out += mutedStyle.Render(fmt.Sprintf("No pairs at or above %.3f", result.Threshold)) + "\n"
	} else {
		rows := make([][]string, 0, len(result.Report))
		risks := make([]string, 0, len(result.Report))
		for i, entry := range result.Report {
			lo, hi := entry.Pair.Canonical()
			risk := plagiarism.GetRiskLevel(entry.Value)
			risks = append(risks, risk)
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				lo,
				hi,
				strconv.FormatFloat(entry.Value, 'f', 3, 64),
				risk,
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("#", "FILE A", "FILE B", "SCORE", "RISK").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 4 && row >= 0 && row < len(risks) {
					if style, ok := riskStyles[risks[row]]; ok {
						return style
					}
				}
				return cellStyle
			})
		out += t.String() + "\n"
	}

	if len(result.Failures) > 0 {
		out += fmt.Sprintf("\n%d comparison(s) failed:\n", len(result.Failures))
		for _, failure := range result.Failures {
			out += fmt.Sprintf("  %s <> %s: %v\n", failure.Pair.A, failure.Pair.B, failure.Cause)
		}
	}

	if len(result.Skipped) > 0 {
		out += fmt.Sprintf("\nSkipped %d file(s) identical to the template\n", len(result.Skipped))
	}

	out += mutedStyle.Render(fmt.Sprintf(
		"%d files, %d/%d pairs compared on %d workers in %s, corpus risk: %s",
		result.Documents, result.Compared, result.Pairs, result.Workers, result.Duration.Round(time.Millisecond), result.Risk,
	)) + "\n"
	return out
}
