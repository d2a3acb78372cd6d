// Package transport abstracts the push delivery provider. The pipeline only
// ever talks to this interface; the provider owns the wire format of inbound
// triggers and may drop messages silently.
package transport

import "context"

// PermissionStatus reports the display permission the transport granted.
type PermissionStatus string

const (
	PermissionGranted     PermissionStatus = "granted"
	PermissionDenied      PermissionStatus = "denied"
	PermissionProvisional PermissionStatus = "provisional"
)

// TapResponse carries the opaque payload handed back when a displayed
// notification is tapped.
type TapResponse struct {
	NotificationID int
	Payload        string
}

// Transport is the delivery-channel collaborator. Stream channels stay open
// for the transport's lifetime; Close releases them.
type Transport interface {
	// RequestPermission asks for display permission. Denial is a status,
	// not an error; errors mean the transport itself was unreachable.
	RequestPermission(ctx context.Context) (PermissionStatus, error)

	// ConfigureForegroundPresentation enables alert/badge/sound while the
	// host is foregrounded. Soft no-op on platforms without the concept.
	ConfigureForegroundPresentation(ctx context.Context) error

	// SetupPermissionCategories registers platform-specific permission
	// categories. Soft no-op where unsupported.
	SetupPermissionCategories(ctx context.Context) error

	// Token returns the active delivery token. Empty string with nil error
	// means no token is currently available.
	Token(ctx context.Context) (string, error)

	// Display issues the user-visible notification call. The payload is the
	// opaque tap round-trip blob.
	Display(ctx context.Context, id int, title, body, payload string) error

	// ForegroundMessages delivers raw triggers while the host runs.
	ForegroundMessages() <-chan map[string]interface{}

	// OpenedMessages delivers raw triggers that re-launched the host from
	// the background; the handler must not assume shared memory survived.
	OpenedMessages() <-chan map[string]interface{}

	// TokenRefresh delivers replacement delivery tokens.
	TokenRefresh() <-chan string

	// IdentityChanges delivers the signed-in user id on every sign-in and
	// the empty string on sign-out.
	IdentityChanges() <-chan string

	// TapResponses delivers tap payloads of displayed notifications.
	TapResponses() <-chan TapResponse

	Close()
}
