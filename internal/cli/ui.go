package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/extsync/easyupdate/pkg/patch"
	"github.com/extsync/easyupdate/pkg/resolve"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success, additions
	colorYellow = lipgloss.Color("220") // Amber - warnings, updates
	colorRed    = lipgloss.Color("167") // Soft red - errors, removals
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleHeader      = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCell        = lipgloss.NewStyle().Padding(0, 1)
)

// decisionStyles colors decisions in status lines and tables.
var decisionStyles = map[resolve.Decision]lipgloss.Style{
	resolve.Update:    lipgloss.NewStyle().Foreground(colorYellow),
	resolve.Add:       lipgloss.NewStyle().Foreground(colorGreen),
	resolve.Duplicate: lipgloss.NewStyle().Foreground(colorGray),
	resolve.Reordered: lipgloss.NewStyle().Foreground(colorBlue),
	resolve.Remove:    lipgloss.NewStyle().Foreground(colorRed),
}

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printFile prints an output file line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printStatus prints one verbose status line, e.g.
// "Rcpp : 1.0.10 -> 1.0.11 (update)".
func printStatus(w io.Writer, rec resolve.Record) {
	line := resolve.StatusLine(rec)
	if style, ok := decisionStyles[rec.Decision]; ok {
		line = style.Render(line)
	}
	fmt.Fprintln(w, strings.Repeat("  ", max(rec.Depth, 0))+line)
}

// =============================================================================
// Tables
// =============================================================================

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			return styleCell
		})
}

// printSummary prints the decision counts of a run and the edits of its
// patch, skipping zero rows.
func printSummary(w io.Writer, s resolve.Summary, counts patch.Counts) {
	t := newTable("", "Count")
	for _, row := range []struct {
		label string
		n     int
	}{
		{"Updated", s.Updated},
		{"Added", s.Added},
		{"Kept", s.Kept},
		{"Duplicate", s.Duplicate},
		{"Reordered", s.Reordered},
		{"Removed", s.Removed},
		{"Dropped", counts.Dropped},
		{"Checksums dropped", counts.ChecksumsDropped},
	} {
		if row.n > 0 {
			t.Row(row.label, StyleNumber.Render(fmt.Sprint(row.n)))
		}
	}
	fmt.Fprintln(w, t.Render())
}
