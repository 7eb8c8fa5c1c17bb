package console

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	pickedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
