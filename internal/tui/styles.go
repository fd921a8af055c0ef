package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the views use.
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

const (
	colorAccent  = colorMauve
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorPeach
	colorInfo    = colorTeal
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	labelStyle    = lipgloss.NewStyle().Foreground(colorOverlay1)
	valueStyle    = lipgloss.NewStyle().Foreground(colorText)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFocus)
	busyStyle     = lipgloss.NewStyle().Foreground(colorWarning)
	helpStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	infoStyle     = lipgloss.NewStyle().Foreground(colorInfo)
	barStyle      = lipgloss.NewStyle().Foreground(colorAccent)
	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1).Padding(0, 1)
)

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(colorOverlay1)
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colorAccent).Underline(true)
)
