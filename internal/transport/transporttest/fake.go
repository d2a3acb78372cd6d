// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"sync"

	"push-pipeline/internal/transport"
)

// DisplayCall records one Display invocation.
type DisplayCall struct {
	ID      int
	Title   string
	Body    string
	Payload string
}

// Fake is a fully in-memory transport. Behavior is tuned per test through
// the exported fields; zero value grants permission and returns no token.
type Fake struct {
	mu sync.Mutex

	Permission    transport.PermissionStatus
	PermissionErr error
	CurrentToken  string
	TokenErr      error
	DisplayErr    error
	ConfigureErr  error

	displays []DisplayCall

	Foreground chan map[string]interface{}
	Opened     chan map[string]interface{}
	Refresh    chan string
	Identity   chan string
	Taps       chan transport.TapResponse

	closeOnce sync.Once
}

func New() *Fake {
	return &Fake{
		Permission: transport.PermissionGranted,
		Foreground: make(chan map[string]interface{}, 16),
		Opened:     make(chan map[string]interface{}, 16),
		Refresh:    make(chan string, 4),
		Identity:   make(chan string, 4),
		Taps:       make(chan transport.TapResponse, 16),
	}
}

func (f *Fake) RequestPermission(ctx context.Context) (transport.PermissionStatus, error) {
	return f.Permission, f.PermissionErr
}

func (f *Fake) ConfigureForegroundPresentation(ctx context.Context) error { return f.ConfigureErr }

func (f *Fake) SetupPermissionCategories(ctx context.Context) error { return nil }

func (f *Fake) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CurrentToken, f.TokenErr
}

// SetToken changes the token returned by subsequent Token calls.
func (f *Fake) SetToken(token string) {
	f.mu.Lock()
	f.CurrentToken = token
	f.mu.Unlock()
}

func (f *Fake) Display(ctx context.Context, id int, title, body, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisplayErr != nil {
		return f.DisplayErr
	}
	f.displays = append(f.displays, DisplayCall{ID: id, Title: title, Body: body, Payload: payload})
	return nil
}

// Displays returns a copy of all recorded display calls.
func (f *Fake) Displays() []DisplayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DisplayCall, len(f.displays))
	copy(out, f.displays)
	return out
}

func (f *Fake) ForegroundMessages() <-chan map[string]interface{} { return f.Foreground }
func (f *Fake) OpenedMessages() <-chan map[string]interface{}     { return f.Opened }
func (f *Fake) TokenRefresh() <-chan string                       { return f.Refresh }
func (f *Fake) IdentityChanges() <-chan string                    { return f.Identity }
func (f *Fake) TapResponses() <-chan transport.TapResponse        { return f.Taps }

func (f *Fake) Close() {
	f.closeOnce.Do(func() {
		close(f.Foreground)
		close(f.Opened)
		close(f.Refresh)
		close(f.Identity)
		close(f.Taps)
	})
}
