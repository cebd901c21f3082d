package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	buyer   lipgloss.Style
	detail  lipgloss.Style
	waiting lipgloss.Style
	pending lipgloss.Style
	idle    lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		buyer:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(2),
		waiting: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		pending: lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
	}
}
