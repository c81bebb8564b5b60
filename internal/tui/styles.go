package tui

import "github.com/charmbracelet/lipgloss"

// Lipgloss styles for the chat transcript and the applicant panel.
var (
	// Bot messages - left aligned, cyan accent
	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			PaddingRight(4)

	// User messages - right aligned, white on dim
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true).
			PaddingLeft(4)

	// Streaming buffer - dim cyan with a trailing cursor
	streamingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Panel section headers
	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	// Recently changed sections flash green
	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("46")).
			Bold(true)

	fieldLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231"))

	// Recently changed field values pulse yellow
	animatedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("226"))

	verifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	unverifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	progressLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("45"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("238")).
				Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)
)
