package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subtleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bannerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")).Padding(0, 1)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedStyle    = inputStyle.BorderForeground(lipgloss.Color("12"))
	labelStyle      = lipgloss.NewStyle().Bold(true)
)
