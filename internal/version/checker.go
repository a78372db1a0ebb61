package version

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// UpdateAvailableMsg reports a newer release to the TUI.
type UpdateAvailableMsg struct {
	CurrentVersion string
	LatestVersion  string
	UpdateCommand  string
}

// CheckAsync returns a tea.Cmd that resolves the latest release in the
// background, going to the network only when the cache is stale. The
// command yields an UpdateAvailableMsg, or nil when already current.
func CheckAsync(currentVersion string) tea.Cmd {
	return func() tea.Msg {
		if cached, err := LoadCache(); err == nil && IsCacheValid(cached, currentVersion) {
			if !cached.HasUpdate {
				return nil
			}
			return UpdateAvailableMsg{
				CurrentVersion: currentVersion,
				LatestVersion:  cached.LatestVersion,
				UpdateCommand:  UpdateCommand(cached.LatestVersion),
			}
		}

		result := Check(currentVersion)
		if result.Error == nil {
			// Failed checks stay uncached so the next run retries.
			_ = SaveCache(&CacheEntry{
				LatestVersion:  result.LatestVersion,
				CurrentVersion: currentVersion,
				CheckedAt:      time.Now(),
				HasUpdate:      result.HasUpdate,
			})
		}

		if !result.HasUpdate {
			return nil
		}
		return UpdateAvailableMsg{
			CurrentVersion: currentVersion,
			LatestVersion:  result.LatestVersion,
			UpdateCommand:  UpdateCommand(result.LatestVersion),
		}
	}
}
