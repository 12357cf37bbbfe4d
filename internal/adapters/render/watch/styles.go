package watch

import "github.com/charmbracelet/lipgloss"

type styles struct {
	banner  lipgloss.Style
	meta    lipgloss.Style
	cursor  lipgloss.Style
	data    lipgloss.Style
	failure lipgloss.Style
}

func newStyles() styles {
	return styles{
		banner:  lipgloss.NewStyle().Bold(true),
		meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		cursor:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		data:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}
