package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"kabuten/internal/config"
	"kabuten/internal/types"
)

var (
	bullishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	bearishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

func newTable(header ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row(header))
	return t
}

// designation renders a lead's call sign in its sector colour.
func designation(def config.SectorDef) string {
	style := lipgloss.NewStyle().Bold(true)
	if def.Colour != "" {
		style = style.Foreground(lipgloss.Color(def.Colour))
	}
	return style.Render(def.Designation)
}

func posture(p types.Posture) string {
	switch p {
	case types.PostureBullish:
		return bullishStyle.Render(string(p))
	case types.PostureBearish:
		return bearishStyle.Render(string(p))
	default:
		return neutralStyle.Render(string(p))
	}
}

func conviction(c float64) string {
	return fmt.Sprintf("%.1f/10", c)
}

// renderSynthesis prints one sector view in detail.
func renderSynthesis(w io.Writer, def config.SectorDef, s types.Synthesis) {
	fmt.Fprintf(w, "%s  %s  %s  %s\n", designation(def), def.Name, posture(s.Posture), conviction(s.Conviction))
	if s.ThesisSummary != "" {
		fmt.Fprintf(w, "\n%s\n", s.ThesisSummary)
	}
	if len(s.KeyDrivers) > 0 {
		fmt.Fprintf(w, "\nDrivers: %s\n", strings.Join(s.KeyDrivers, "; "))
	}
	if len(s.KeyRisks) > 0 {
		fmt.Fprintf(w, "Risks:   %s\n", strings.Join(s.KeyRisks, "; "))
	}

	t := newTable("Ticker", "Company", "Finding", "Signal", "Headline")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, WidthMax: 60}})
	for _, f := range s.CompanySignals {
		t.AppendRow(table.Row{f.Ticker, f.CompanyName, f.FindingType, f.Signal, f.Headline})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, t.Render())
}

// renderMarkdown renders a chat reply for the terminal, falling back to the
// raw text.
func renderMarkdown(s string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return s
	}
	out, err := renderer.Render(s)
	if err != nil {
		return s
	}
	return out
}

func alignRight(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		out = append(out, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	return out
}
