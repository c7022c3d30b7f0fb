package gateway

import (
	"context"
	"errors"
)

// SessionManager drives interactive login and logout against whichever
// provider is currently loaded in the store. All outcome reporting goes
// through dispatched actions; callers read the resulting session state
// rather than a return value when they need phase detail.
type SessionManager struct {
	store  *Store
	states StateStore
	nav    Navigator
	logger Logger
}

// SessionOption customizes session manager construction.
type SessionOption func(*SessionManager)

func WithSessionLogger(logger Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewSessionManager(store *Store, states StateStore, nav Navigator, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store:  store,
		states: states,
		nav:    nav,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// LogIn authenticates against the current provider. The generation
// captured when the attempt starts gates the resolution, so a slow
// response cannot overwrite the outcome of a newer attempt.
func (m *SessionManager) LogIn(ctx context.Context, username, password string) error {
	provider := m.store.State().Authorisation.Provider
	if provider == nil || IsTransitionalProvider(provider) {
		return enrich(ErrUnsupportedOperation,
			map[string]any{"reason": "no auth provider loaded yet"})
	}

	m.store.Dispatch(LoadingAuthentication())
	generation := m.store.State().Authorisation.Generation

	if err := provider.LogIn(ctx, username, password); err != nil {
		m.logger.Info("login failed for provider %s: %v", provider.Name(), err)
		m.store.Dispatch(Unauthorised(generation))
		return err
	}

	m.store.Dispatch(Authorised(generation))
	m.navigateAfterLogin(ctx)
	return nil
}

// navigateAfterLogin returns the user to the page they were gated away
// from, falling back to the landing route.
func (m *SessionManager) navigateAfterLogin(ctx context.Context) {
	if m.nav == nil {
		return
	}

	target := "/"
	if referrer, err := m.states.Get(ctx, KeyReferrer); err == nil && referrer != "" {
		target = referrer
	}

	if err := m.states.Delete(ctx, KeyReferrer); err != nil && !errors.Is(err, ErrStateKeyNotFound) {
		m.logger.Warn("failed to clear stored referrer: %v", err)
	}

	m.nav.Push(target, nil)
}

// SignOut ends the session and returns to the landing route. The auto
// login marker is cleared so a provider that anonymously re-establishes
// a session does not hide the fact that the user chose to leave.
func (m *SessionManager) SignOut(ctx context.Context) {
	m.store.Dispatch(SignOut())

	if err := m.states.Delete(ctx, KeyAutoLogin); err != nil && !errors.Is(err, ErrStateKeyNotFound) {
		m.logger.Warn("failed to clear auto login marker: %v", err)
	}

	if m.nav != nil {
		m.nav.Push("/", nil)
	}
}

// RememberReferrer stores the path an unauthenticated visitor tried to
// reach. The landing and homepage routes are never remembered, and an
// authenticated session has nothing to restore.
func (m *SessionManager) RememberReferrer(ctx context.Context, path string) {
	state := m.store.State()

	if path == "/" || (state.HomepageURL != "" && path == state.HomepageURL) {
		return
	}
	if state.Authorisation.Provider != nil && state.Authorisation.Provider.IsLoggedIn() {
		return
	}

	if err := m.states.Set(ctx, KeyReferrer, path); err != nil {
		m.logger.Warn("failed to store referrer: %v", err)
	}
}
