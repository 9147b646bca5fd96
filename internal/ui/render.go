// Package ui renders terminal output for the CLI: session tables, batch
// summaries and status lines. Styling degrades to plain text when stdout
// is not a terminal.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Success renders s in the success color.
func Success(s string) string {
	return lipgloss.NewStyle().Foreground(ColorSuccess).Render(s)
}

// Failure renders s in the error color.
func Failure(s string) string {
	return lipgloss.NewStyle().Foreground(ColorError).Render(s)
}

// Muted renders s in the muted color.
func Muted(s string) string {
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(s)
}

// SessionRow is one row of the session listing.
type SessionRow struct {
	Live    bool
	Session string // user@host:port
	Socket  string // control socket path
	Created string // creation timestamp, already formatted
}

// RenderSessionTable renders the session listing as a formatted table.
func RenderSessionTable(rows []SessionRow) string {
	if len(rows) == 0 {
		return "No sessions"
	}

	successStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	sessionWidth := len("SESSION")
	for _, row := range rows {
		if w := lipgloss.Width(row.Session); w > sessionWidth {
			sessionWidth = w
		}
	}
	sessionWidth += 3

	var b strings.Builder
	b.WriteString(headerStyle.Render("  STATE   " + padRight("SESSION", sessionWidth) + padRight("CREATED", 22) + "SOCKET"))
	b.WriteString("\n")

	for _, row := range rows {
		var icon string
		if row.Live {
			icon = successStyle.Render(SymbolLive)
		} else {
			icon = errorStyle.Render(SymbolStale)
		}
		b.WriteString("  " + icon + "       " +
			padRight(row.Session, sessionWidth) +
			padRight(row.Created, 22) +
			mutedStyle.Render(row.Socket))
		b.WriteString("\n")
	}

	return b.String()
}

// BatchLine is one operation's outcome for summary display. Mirrors the
// batch package's result shape to avoid an import cycle with callers that
// render both directions.
type BatchLine struct {
	Label    string
	ExitCode int
	Attempts int
	Output   string
}

// RenderBatchSummary formats the per-operation outcome list plus the
// aggregate counts for a finished batch.
func RenderBatchSummary(id string, lines []BatchLine) string {
	successStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	succeeded, failed := 0, 0

	for i, line := range lines {
		var icon string
		if line.ExitCode == 0 {
			icon = successStyle.Render(SymbolSuccess)
			succeeded++
		} else {
			icon = errorStyle.Render(SymbolFail)
			failed++
		}

		detail := ""
		if line.ExitCode != 0 {
			detail = fmt.Sprintf(" (exit %d)", line.ExitCode)
		}
		if line.Attempts > 1 {
			detail += fmt.Sprintf(" [%d attempts]", line.Attempts)
		}
		fmt.Fprintf(&b, "  %s %d. %s%s\n", icon, i+1, line.Label, detail)

		if line.ExitCode != 0 && line.Output != "" {
			for _, out := range strings.Split(strings.TrimSpace(line.Output), "\n") {
				b.WriteString("       " + mutedStyle.Render(out) + "\n")
			}
		}
	}

	b.WriteString("\n")
	counts := fmt.Sprintf("%d succeeded, %d failed", succeeded, failed)
	if failed == 0 {
		b.WriteString(successStyle.Render(SymbolSuccess+" batch "+id+": "+counts) + "\n")
	} else {
		b.WriteString(errorStyle.Render(SymbolFail+" batch "+id+": "+counts) + "\n")
	}

	return b.String()
}

// padRight pads a string to the specified width, ignoring ANSI codes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
