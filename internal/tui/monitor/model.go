// Package monitor is the live sync dashboard: connection state, the
// pending queue, open conflicts and recent notifications in one
// auto-refreshing terminal view.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mariia-hub/hubsync/internal/db"
	"github.com/mariia-hub/hubsync/internal/models"
	"github.com/mariia-hub/hubsync/internal/sync"
	"github.com/mariia-hub/hubsync/internal/version"
)

// Panel represents which panel is active
type Panel int

const (
	PanelStatus Panel = iota
	PanelConflicts
	PanelNotifications
)

const panelCount = 3

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 14

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed data
type RefreshDataMsg struct {
	Status        sync.Status
	Conflicts     []models.ConflictRecord
	Notifications []models.NotificationRecord
	Timestamp     time.Time
	Err           error
}

// Model is the Bubble Tea model for the monitor TUI.
type Model struct {
	DB       *db.DB
	DeviceID string
	Version  string

	// Window dimensions
	Width  int
	Height int

	// Panel data
	Status        sync.Status
	Conflicts     []models.ConflictRecord
	Notifications []models.NotificationRecord

	// UI state
	ActivePanel  Panel
	ScrollOffset map[Panel]int
	Spinner      spinner.Model
	ShowHelp     bool
	LastRefresh  time.Time
	Err          error
	UpdateInfo   *version.UpdateAvailableMsg

	RefreshInterval time.Duration
}

// NewModel creates a monitor model refreshing on the given interval.
func NewModel(database *db.DB, deviceID, appVersion string, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Model{
		DB:              database,
		DeviceID:        deviceID,
		Version:         appVersion,
		RefreshInterval: interval,
		ScrollOffset:    make(map[Panel]int),
		ActivePanel:     PanelStatus,
		Spinner:         sp,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
		m.Spinner.Tick,
		version.CheckAsync(m.Version),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Status = msg.Status
			m.Conflicts = msg.Conflicts
			m.Notifications = msg.Notifications
		}
		m.LastRefresh = msg.Timestamp
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case version.UpdateAvailableMsg:
		m.UpdateInfo = &msg
		return m, nil
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.ActivePanel = (m.ActivePanel + 1) % panelCount
		return m, nil

	case "shift+tab":
		m.ActivePanel = (m.ActivePanel + panelCount - 1) % panelCount
		return m, nil

	case "1":
		m.ActivePanel = PanelStatus
		return m, nil

	case "2":
		m.ActivePanel = PanelConflicts
		return m, nil

	case "3":
		m.ActivePanel = PanelNotifications
		return m, nil

	case "j", "down":
		m.ScrollOffset[m.ActivePanel]++
		return m, nil

	case "k", "up":
		if m.ScrollOffset[m.ActivePanel] > 0 {
			m.ScrollOffset[m.ActivePanel]--
		}
		return m, nil

	case "r":
		return m, m.fetchData()

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that fetches all data and sends a RefreshDataMsg
func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		return FetchData(m.DB)
	}
}
