// Package output provides styled terminal output helpers (success,
// error, sync status and conflict formatting) using lipgloss.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/sync"
)

var (
	// Styles
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	priorityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	stateStyles   = map[models.NotificationState]lipgloss.Style{
		models.NotificationCreated:   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.NotificationDisplayed: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.NotificationRead:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.NotificationDismissed: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		models.NotificationExpired:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeConflict      = "conflict"
	ErrCodeOffline       = "offline"
	ErrCodeNotRestorable = "not_restorable"
	ErrCodeDatabaseError = "database_error"
	ErrCodeServerError   = "server_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// FormatOnline renders the connectivity flag.
func FormatOnline(online bool) string {
	if online {
		return onlineStyle.Render("● online")
	}
	return offlineStyle.Render("○ offline")
}

// FormatSyncStatus renders a full status snapshot for `hubsync status`.
func FormatSyncStatus(st sync.Status) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Sync"))
	sb.WriteString("  ")
	sb.WriteString(FormatOnline(st.Online))
	if st.Flushing {
		sb.WriteString("  " + warningStyle.Render("flushing"))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Pending operations: %d\n", st.PendingCount))
	if st.ConflictCount > 0 {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Conflicts: %d", st.ConflictCount)))
		sb.WriteString(subtleStyle.Render("  (run 'hubsync conflicts' to resolve)"))
		sb.WriteString("\n")
	}
	if st.LastSyncAt != nil {
		sb.WriteString(fmt.Sprintf("Last sync: %s\n", FormatTimeAgo(*st.LastSyncAt)))
	} else {
		sb.WriteString(subtleStyle.Render("Never synced") + "\n")
	}
	if st.LastError != "" {
		sb.WriteString(errorStyle.Render("Last error: "+st.LastError) + "\n")
	}
	return sb.String()
}

// FormatConflict renders one conflict in short form.
func FormatConflict(c models.ConflictRecord) string {
	parts := []string{
		titleStyle.Render(c.EntityType + "/" + c.EntityID),
		subtleStyle.Render(FormatTimeAgo(c.DetectedAt)),
	}
	if c.ManualOnly {
		parts = append(parts, errorStyle.Render("[manual only]"))
	}
	return strings.Join(parts, "  ")
}

// FormatConflictDetail renders both sides of a conflict.
func FormatConflictDetail(c models.ConflictRecord) string {
	var sb strings.Builder
	sb.WriteString(FormatConflict(c))
	sb.WriteString("\n\n")
	sb.WriteString(subtleStyle.Render("Local:"))
	sb.WriteString("\n")
	sb.WriteString(indentJSON(c.LocalData))
	sb.WriteString("\n")
	sb.WriteString(subtleStyle.Render(fmt.Sprintf("Remote (revision %d):", c.RemoteRevision)))
	sb.WriteString("\n")
	sb.WriteString(indentJSON(c.RemoteData))
	sb.WriteString("\n")
	return sb.String()
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		return "  " + string(raw)
	}
	return "  " + buf.String()
}

// FormatDevice renders one registered device.
func FormatDevice(d models.Device, current bool) string {
	parts := []string{
		titleStyle.Render(d.ID),
		fmt.Sprintf("[%s]", d.Platform),
		d.Name,
	}
	if current {
		parts = append(parts, successStyle.Render("(this device)"))
	}
	return strings.Join(parts, "  ")
}

// FormatPriority renders a notification priority badge.
func FormatPriority(p int) string {
	return priorityStyle.Render(fmt.Sprintf("[p%d]", p))
}

// FormatNotification renders one notification line for history output.
func FormatNotification(n models.NotificationRecord) string {
	parts := []string{
		StateBadge(n.State),
		FormatPriority(n.Priority),
		n.Title,
	}
	if n.Message != "" {
		parts = append(parts, subtleStyle.Render(n.Message))
	}
	parts = append(parts, subtleStyle.Render(FormatTimeAgo(n.CreatedAt)))
	return strings.Join(parts, "  ")
}

// StateBadge returns a notification state indicator with symbol,
// e.g. "○ created", "▶ displayed", "✓ read", "✗ dismissed".
func StateBadge(state models.NotificationState) string {
	symbols := map[models.NotificationState]string{
		models.NotificationCreated:   "○",
		models.NotificationDisplayed: "▶",
		models.NotificationRead:      "✓",
		models.NotificationDismissed: "✗",
		models.NotificationExpired:   "·",
	}
	symbol, ok := symbols[state]
	if !ok {
		symbol = "?"
	}
	style, hasStyle := stateStyles[state]
	if hasStyle {
		return style.Render(fmt.Sprintf("%s %s", symbol, state))
	}
	return fmt.Sprintf("%s %s", symbol, state)
}

// FormatBackup renders one backup line for `hubsync backup list`.
func FormatBackup(b models.BackupRecord) string {
	parts := []string{
		titleStyle.Render(b.ID),
		b.BackupVersion,
		FormatSize(b.SizeBytes),
		subtleStyle.Render("from " + b.DeviceSource),
		subtleStyle.Render(FormatTimeAgo(b.CreatedAt)),
	}
	if !b.IsRestorable {
		parts = append(parts, errorStyle.Render("[deleted]"))
	}
	return strings.Join(parts, "  ")
}

// FormatSize renders a byte count in a compact human form.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	}
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
