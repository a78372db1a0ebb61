package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/output"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}

	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	if m.Err != nil {
		return m.renderError()
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	// Status panel is short; conflicts and notifications split the rest.
	availableHeight := m.Height - 3 // footer
	statusHeight := 7
	if statusHeight > availableHeight/3 {
		statusHeight = availableHeight / 3
	}
	rest := availableHeight - statusHeight
	conflictsHeight := rest / 2
	notifyHeight := rest - conflictsHeight

	panels := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatusPanel(statusHeight),
		m.renderConflictsPanel(conflictsHeight),
		m.renderNotificationsPanel(notifyHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left, panels, m.renderFooter())
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder

	s.WriteString("hubsync monitor (resize for full view)\n\n")
	s.WriteString(fmt.Sprintf("Pending: %d | Conflicts: %d\n", m.Status.PendingCount, m.Status.ConflictCount))
	if m.Status.LastSyncAt != nil {
		s.WriteString(fmt.Sprintf("Last sync: %s\n", output.FormatTimeAgo(*m.Status.LastSyncAt)))
	}
	s.WriteString("\nq:quit r:refresh ?:help")

	return s.String()
}

// renderError renders an error message
func (m Model) renderError() string {
	return fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.Err)
}

func (m Model) renderHelp() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("hubsync monitor"))
	s.WriteString("\n\n")
	s.WriteString("  q, ctrl+c   quit\n")
	s.WriteString("  tab         next panel\n")
	s.WriteString("  shift+tab   previous panel\n")
	s.WriteString("  1/2/3       jump to panel\n")
	s.WriteString("  j/k, ↑/↓    scroll active panel\n")
	s.WriteString("  r           refresh now\n")
	s.WriteString("  ?           toggle this help\n")
	return s.String()
}

// renderStatusPanel renders the sync status panel (Panel 1)
func (m Model) renderStatusPanel(height int) string {
	var content strings.Builder

	if m.Status.Online {
		content.WriteString(onlineStyle.Render("● online"))
	} else {
		content.WriteString(offlineStyle.Render("○ offline"))
	}
	if m.Status.Flushing {
		content.WriteString("  " + m.Spinner.View() + " flushing")
	}
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("Device: %s\n", m.DeviceID))
	content.WriteString(fmt.Sprintf("Pending operations: %d\n", m.Status.PendingCount))
	if m.Status.LastSyncAt != nil {
		content.WriteString(fmt.Sprintf("Last sync: %s\n", output.FormatTimeAgo(*m.Status.LastSyncAt)))
	} else {
		content.WriteString(subtleStyle.Render("Never synced") + "\n")
	}
	if m.Status.LastError != "" {
		content.WriteString(errorStyle.Render("Last error: " + m.Status.LastError))
		content.WriteString("\n")
	}

	return m.wrapPanel("SYNC", content.String(), height, PanelStatus)
}

// renderConflictsPanel renders the open conflicts panel (Panel 2)
func (m Model) renderConflictsPanel(height int) string {
	var content strings.Builder

	if len(m.Conflicts) == 0 {
		content.WriteString(subtleStyle.Render("No conflicts"))
	} else {
		offset := m.ScrollOffset[PanelConflicts]
		visible := m.visibleItems(len(m.Conflicts), offset, height-3)

		for i := offset; i < offset+visible && i < len(m.Conflicts); i++ {
			content.WriteString(m.formatConflictLine(m.Conflicts[i]))
			content.WriteString("\n")
		}
	}

	title := "CONFLICTS"
	if len(m.Conflicts) > 0 {
		title = fmt.Sprintf("CONFLICTS (%d)", len(m.Conflicts))
	}
	return m.wrapPanel(title, content.String(), height, PanelConflicts)
}

func (m Model) formatConflictLine(c models.ConflictRecord) string {
	line := titleStyle.Render(c.EntityType+"/"+c.EntityID) +
		"  " + timestampStyle.Render(output.FormatTimeAgo(c.DetectedAt))
	if c.ManualOnly {
		line += "  " + manualOnlyStyle.Render("[manual only]")
	}
	return line
}

// renderNotificationsPanel renders the notification history panel (Panel 3)
func (m Model) renderNotificationsPanel(height int) string {
	var content strings.Builder

	if len(m.Notifications) == 0 {
		content.WriteString(subtleStyle.Render("No notifications"))
	} else {
		offset := m.ScrollOffset[PanelNotifications]
		visible := m.visibleItems(len(m.Notifications), offset, height-3)

		for i := offset; i < offset+visible && i < len(m.Notifications); i++ {
			n := m.Notifications[i]
			line := fmt.Sprintf("%s %s %s  %s",
				formatState(n.State),
				formatPriority(n.Priority),
				n.Title,
				timestampStyle.Render(output.FormatTimeAgo(n.CreatedAt)))
			content.WriteString(line)
			content.WriteString("\n")
		}
	}

	return m.wrapPanel("NOTIFICATIONS", content.String(), height, PanelNotifications)
}

// visibleItems returns how many items fit given the offset and height
func (m Model) visibleItems(total, offset, maxLines int) int {
	if maxLines < 1 {
		maxLines = 1
	}
	remaining := total - offset
	if remaining < 0 {
		return 0
	}
	if remaining > maxLines {
		return maxLines
	}
	return remaining
}

// wrapPanel wraps content in a bordered panel with a title bar
func (m Model) wrapPanel(title, content string, height int, panel Panel) string {
	style := panelStyle
	if m.ActivePanel == panel {
		style = activePanelStyle
	}

	titleStr := panelTitleStyle.Render(title)
	contentWidth := m.Width - 4

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	contentHeight := height - 3
	if contentHeight < 1 {
		contentHeight = 1
	}
	for len(lines) < contentHeight {
		lines = append(lines, "")
	}
	if len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}

	for i, line := range lines {
		if lipgloss.Width(line) > contentWidth {
			lines[i] = ansi.Truncate(line, contentWidth, "…")
		}
	}

	inner := lipgloss.JoinVertical(lipgloss.Left, titleStr, strings.Join(lines, "\n"))
	return style.Width(m.Width - 2).Render(inner)
}

// renderFooter renders the key help line with alert badges
func (m Model) renderFooter() string {
	keys := helpStyle.Render("q:quit  tab:switch  ↑↓:scroll  r:refresh  ?:help")

	conflictAlert := ""
	if len(m.Conflicts) > 0 {
		conflictAlert = conflictAlertStyle.Render(fmt.Sprintf(" [%d CONFLICT] ", len(m.Conflicts)))
	}

	updateBadge := ""
	if m.UpdateInfo != nil {
		updateBadge = updateBadgeStyle.Render(fmt.Sprintf(" %s available ", m.UpdateInfo.LatestVersion))
	}

	refresh := timestampStyle.Render(fmt.Sprintf("Last: %s", m.LastRefresh.Format("15:04:05")))

	padding := m.Width - lipgloss.Width(keys) - lipgloss.Width(conflictAlert) - lipgloss.Width(updateBadge) - lipgloss.Width(refresh) - 2
	if padding < 0 {
		padding = 0
	}

	return fmt.Sprintf(" %s%s%s%s%s", keys, strings.Repeat(" ", padding), updateBadge, conflictAlert, refresh)
}
