package monitor

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mariia-hub/hubsync/internal/models"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle     = lipgloss.NewStyle().Foreground(errorColor)
	onlineStyle    = lipgloss.NewStyle().Foreground(successColor)
	offlineStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	spinnerStyle   = lipgloss.NewStyle().Foreground(primaryColor)

	conflictAlertStyle = lipgloss.NewStyle().
				Bold(true).
				Background(errorColor).
				Foreground(lipgloss.Color("255"))

	manualOnlyStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	updateBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(successColor)

	// Notification state styles
	stateStyles = map[models.NotificationState]lipgloss.Style{
		models.NotificationCreated:   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.NotificationDisplayed: lipgloss.NewStyle().Foreground(warningColor),
		models.NotificationRead:      lipgloss.NewStyle().Foreground(successColor),
		models.NotificationDismissed: lipgloss.NewStyle().Foreground(mutedColor),
		models.NotificationExpired:   lipgloss.NewStyle().Foreground(mutedColor),
	}

	priorityHighStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	priorityLowStyle  = lipgloss.NewStyle().Foreground(mutedColor)
)

// formatState renders a notification state with color
func formatState(s models.NotificationState) string {
	style, ok := stateStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

// formatPriority renders a priority badge, loud above the native threshold
func formatPriority(p int) string {
	if p >= 7 {
		return priorityHighStyle.Render("[p" + string(rune('0'+p)) + "]")
	}
	return priorityLowStyle.Render("[p" + string(rune('0'+p)) + "]")
}
