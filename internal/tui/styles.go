package tui

import "github.com/charmbracelet/lipgloss"

// Style is the set of lipgloss styles the chat screen uses.
type Style struct {
	Title          lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Pending        lipgloss.Style
	Option         lipgloss.Style
	SelectedOption lipgloss.Style
	Error          lipgloss.Style
	Status         map[string]lipgloss.Style
	Help           lipgloss.Style
}

func DefaultStyles() *Style {
	muted := lipgloss.AdaptiveColor{Light: "#777777", Dark: "#888888"}

	return &Style{
		Title: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#A49CF5"}),
		UserLabel: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1E7B34", Dark: "#7BD88F"}),
		AssistantLabel: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#0B5CAD", Dark: "#78B7FF"}),
		Pending: lipgloss.NewStyle().Italic(true).Foreground(muted),
		Option:  lipgloss.NewStyle().PaddingLeft(2),
		SelectedOption: lipgloss.NewStyle().PaddingLeft(1).Bold(true).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#FFB6C1", Dark: "#DD7090"}),
		Error: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}),
		Status: map[string]lipgloss.Style{
			"connected":    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1E7B34", Dark: "#7BD88F"}),
			"connecting":   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#FFDD77"}),
			"failed":       lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}),
			"disconnected": lipgloss.NewStyle().Foreground(muted),
		},
		Help: lipgloss.NewStyle().Faint(true),
	}
}
