package notify

// Permission is the platform notification permission state.
type Permission string

const (
	PermissionUndetermined Permission = "undetermined"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

// Bridge is the platform notification surface (web Notification API,
// APNs, system tray). High-priority notifications are mirrored through
// it so they reach the user outside the app.
type Bridge interface {
	// Permission returns the current permission state without prompting.
	Permission() Permission
	// RequestPermission prompts the user and returns the outcome.
	RequestPermission() (Permission, error)
	// Show displays a native notification identified by id.
	Show(id, title, message string) error
	// Close dismisses a previously shown native notification.
	Close(id string) error
}

// NopBridge is used on platforms without a native surface.
type NopBridge struct{}

func (NopBridge) Permission() Permission                 { return PermissionDenied }
func (NopBridge) RequestPermission() (Permission, error) { return PermissionDenied, nil }
func (NopBridge) Show(string, string, string) error      { return nil }
func (NopBridge) Close(string) error                     { return nil }
