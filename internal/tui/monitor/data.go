package monitor

import (
	"time"

	"github.com/mariia-hub/hubsync/internal/db"
)

// notificationLimit bounds the notification history panel.
const notificationLimit = 50

// FetchData retrieves everything the monitor displays. The monitor
// reads the same database the agent writes, so it reflects queue and
// conflict state even when run as a separate process.
func FetchData(database *db.DB) RefreshDataMsg {
	msg := RefreshDataMsg{
		Timestamp: time.Now(),
	}

	pending, err := database.CountPendingOperations()
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Status.PendingCount = pending

	conflicts, err := database.ListConflicts()
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Conflicts = conflicts
	msg.Status.ConflictCount = len(conflicts)

	last, err := database.LastSyncAt()
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Status.LastSyncAt = last
	// Reachability heuristic: a sync inside two refresh windows of the
	// agent's 30s interval counts as online.
	if last != nil && time.Since(*last) < time.Minute {
		msg.Status.Online = true
	}

	notifications, err := database.ListRecentNotifications(notificationLimit)
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Notifications = notifications

	return msg
}
