package cmd

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Shared terminal styles for command output
var (
	summaryTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	summaryLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("2"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))
)

const summaryRound = 10 * time.Millisecond
