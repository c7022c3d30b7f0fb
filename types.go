package gateway

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// AuthProvider is the host's view of an authentication backend. One
// instance is active at a time; changing the provider type replaces the
// instance wholesale.
type AuthProvider interface {
	// Name returns the mnemonic the provider was registered under.
	Name() string
	// Token returns the current opaque token, empty when absent.
	Token() string
	IsLoggedIn() bool
	IsAdmin() bool
	UserInfo() UserInfo
	// LogIn authenticates with the given credentials. Bad credentials
	// surface as an error, never as a panic.
	LogIn(ctx context.Context, username, password string) error
	// VerifyLogIn errors when the stored token is absent, malformed, or
	// rejected by the backend. A nil return means the token remains
	// valid for continued use.
	VerifyLogIn(ctx context.Context) error
	// SignOut discards the token and any cached user info.
	SignOut()
}

// AutoLoginProvider is implemented by providers that can establish a
// session silently, without user supplied credentials.
type AutoLoginProvider interface {
	AutoLogin(ctx context.Context) error
}

// RefreshProvider is implemented by providers that can exchange the
// current token for a fresh one.
type RefreshProvider interface {
	Refresh(ctx context.Context) error
}

// MaintenanceProvider is implemented by providers whose backend exposes
// maintenance scheduling.
type MaintenanceProvider interface {
	FetchMaintenanceState(ctx context.Context) (MaintenanceState, error)
	FetchScheduledMaintenanceState(ctx context.Context) (MaintenanceState, error)
}

// MaintenanceUpdater is implemented by providers that allow admins to
// change the maintenance state.
type MaintenanceUpdater interface {
	SetMaintenanceState(ctx context.Context, state MaintenanceState) error
	SetScheduledMaintenanceState(ctx context.Context, state MaintenanceState) error
}

// RedirectProvider is implemented by providers that authenticate via an
// external redirect instead of credentials.
type RedirectProvider interface {
	RedirectURL() string
}

// UserInfo carries the profile attributes a provider knows about the
// authenticated user.
type UserInfo struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// MaintenanceState is a flag/message pair describing current or
// scheduled downtime.
type MaintenanceState struct {
	Show    bool   `json:"show"`
	Message string `json:"message"`
}

// StateStore is the persisted browser-state analog: a flat key/value
// store holding tokens, the referrer, theme preferences and the
// auto-login marker.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Keys used in the StateStore.
const (
	KeyToken            = "scigateway:token"
	KeyReferrer         = "referrer"
	KeyDarkMode         = "darkMode"
	KeyHighContrastMode = "highContrastMode"
	KeyAutoLogin        = "autoLogin"
)

// Navigator abstracts the hosting runtime's history: the gateway pushes
// routes, the runtime reports the current path.
type Navigator interface {
	Push(path string, state map[string]any)
	Path() string
}

// ToastSink surfaces transient user-facing notifications. Severities
// below warning never reach the sink.
type ToastSink interface {
	Error(title, message string)
	Warning(title, message string)
}

// AnalyticsTracker is the outbound port for page tracking. The id is
// configured at bootstrap; Init happens separately, later.
type AnalyticsTracker interface {
	Init(id string) error
	PageView(page string)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GATEWAY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] GATEWAY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GATEWAY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GATEWAY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopToastSink struct{}

func (noopToastSink) Error(string, string)   {}
func (noopToastSink) Warning(string, string) {}

type noopTracker struct{}

func (noopTracker) Init(string) error { return nil }
func (noopTracker) PageView(string)   {}
