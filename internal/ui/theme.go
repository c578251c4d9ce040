package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Title, Muted, Accent, Success, Error, Pending lipgloss.Style
	Selected, Done                               lipgloss.Style

	Border      lipgloss.Border
	BorderColor lipgloss.TerminalColor

	BoxUnchecked, BoxChecked string
	SymDone, SymPending      string
	SymOK, SymFail           string
}

var current = classic()

func SetTheme(name string) {
	switch strings.ToLower(name) {
	case "neon":
		current = Theme{
			Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
			Muted:   lipgloss.NewStyle().Faint(true),
			Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
			Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),

			Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
			Done:     lipgloss.NewStyle().Faint(true).Strikethrough(true),

			Border:      lipgloss.RoundedBorder(),
			BorderColor: lipgloss.Color("13"),

			BoxUnchecked: "◻", BoxChecked: "◼",
			SymDone: "✔", SymPending: "•",
			SymOK: "✔", SymFail: "✖",
		}
	case "mono":
		plain := lipgloss.NewStyle()
		current = Theme{
			Title: plain, Muted: plain, Accent: plain, Success: plain, Error: plain, Pending: plain,
			Selected: plain, Done: plain,

			Border:      lipgloss.NormalBorder(),
			BorderColor: lipgloss.NoColor{},

			BoxUnchecked: "[ ]", BoxChecked: "[x]",
			SymDone: "x", SymPending: "-",
			SymOK: "ok", SymFail: "error:",
		}
	default: // classic
		current = classic()
	}
}

func classic() Theme {
	return Theme{
		Title:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Faint(true),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),

		Selected: lipgloss.NewStyle().Bold(true).Reverse(true),
		Done:     lipgloss.NewStyle().Faint(true).Strikethrough(true),

		Border:      lipgloss.RoundedBorder(),
		BorderColor: lipgloss.Color("8"),

		BoxUnchecked: "☐", BoxChecked: "☑",
		SymDone: "✔", SymPending: "•",
		SymOK: "✔", SymFail: "✖",
	}
}

// Expose what renderers need
func Current() Theme { return current }
