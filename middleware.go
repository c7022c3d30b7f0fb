package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-print"
)

// PluginMediator wires the store to the plugin bus: outbound it mirrors
// broadcastable actions and theme/rerender signals, inbound it
// validates envelopes and translates recognized plugin API messages
// into dispatches. A misbehaving plugin can log errors here but can
// never crash the host.
type PluginMediator struct {
	bus     Bus
	nav     Navigator
	states  StateStore
	toasts  ToastSink
	tracker AnalyticsTracker
	logger  Logger

	currentPage string
	prevPath    string

	wasLoading  bool
	wasLoggedIn bool
}

// MediatorOption customizes mediator construction.
type MediatorOption func(*PluginMediator)

func WithMediatorLogger(logger Logger) MediatorOption {
	return func(m *PluginMediator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithToastSink(toasts ToastSink) MediatorOption {
	return func(m *PluginMediator) {
		if toasts != nil {
			m.toasts = toasts
		}
	}
}

func WithAnalyticsTracker(tracker AnalyticsTracker) MediatorOption {
	return func(m *PluginMediator) {
		if tracker != nil {
			m.tracker = tracker
		}
	}
}

// WithPreferenceStore makes display preference changes durable across
// restarts.
func WithPreferenceStore(states StateStore) MediatorOption {
	return func(m *PluginMediator) {
		if states != nil {
			m.states = states
		}
	}
}

func NewPluginMediator(bus Bus, nav Navigator, opts ...MediatorOption) *PluginMediator {
	m := &PluginMediator{
		bus:        bus,
		nav:        nav,
		toasts:     noopToastSink{},
		tracker:    noopTracker{},
		logger:     defLogger{},
		wasLoading: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Middleware returns the store middleware handling the host-to-plugin
// direction plus the action side effects that belong to the bus layer.
func (m *PluginMediator) Middleware() Middleware {
	return func(s *Store, next func(Action), a Action) {
		if actionBroadcasts(a) {
			if msg, ok := messageFromAction(a, m.logger); ok {
				m.bus.Broadcast(msg)
			}
			// A broadcast notification comes back through the inbound
			// handler, which applies it exactly once for host and
			// plugins alike.
			if a.Type == NotificationType {
				return
			}
		}

		switch a.Type {
		case LocationChangeType:
			next(a)
			m.afterLocationChange(s, a)

		case ToggleDrawerType:
			next(a)
			s.Dispatch(RequestPluginRerender())

		case LoadDarkModePreferenceType, LoadHighContrastPreferenceType:
			next(a)
			state := s.State()
			m.persistPreference(a.Type, state)
			s.Dispatch(SendThemeOptions(BuildTheme(state.DarkMode, state.HighContrast)))
			s.Dispatch(RequestPluginRerender())

		case ConfigureAnalyticsType:
			next(a)
			if payload, ok := a.Payload.(analyticsPayload); ok {
				if err := m.tracker.Init(payload.ID); err != nil {
					m.logger.Warn("analytics initialisation failed: %v", err)
				} else {
					s.Dispatch(InitialiseAnalytics())
				}
			}

		default:
			next(a)
		}

		m.notifyAuthTransition(s)
	}
}

func (m *PluginMediator) persistPreference(actionType string, state State) {
	if m.states == nil {
		return
	}

	key := KeyDarkMode
	value := state.DarkMode
	if actionType == LoadHighContrastPreferenceType {
		key = KeyHighContrastMode
		value = state.HighContrast
	}

	if err := m.states.Set(context.Background(), key, boolString(value)); err != nil {
		m.logger.Warn("failed to persist %s preference: %v", key, err)
	}
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// afterLocationChange tracks analytics page views and forces a plugin
// remount when a route transition moves a bundle between admin and
// non-admin mount points, which the hosting runtime does not detect on
// its own.
func (m *PluginMediator) afterLocationChange(s *Store, a Action) {
	payload, ok := a.Payload.(locationPayload)
	if !ok {
		return
	}

	state := s.State()

	if state.Analytics != nil && state.Analytics.Initialised {
		page := payload.Path + payload.Search
		if page != m.currentPage {
			m.currentPage = page
			m.tracker.PageView(page)
		}
	}

	if m.prevPath != "" && m.prevPath != payload.Path {
		if plugin, ok := RemountTarget(m.prevPath, payload.Path, state.Plugins); ok {
			s.Dispatch(RequestPluginRemount(plugin))
		}
	}
	m.prevPath = payload.Path
}

// notifyAuthTransition broadcasts a rerender request when the session
// settles into a fully loaded authenticated state, so plugins
// re-evaluate visibility.
func (m *PluginMediator) notifyAuthTransition(s *Store) {
	state := s.State()
	loading := state.SiteLoading || state.Authorisation.Loading ||
		IsTransitionalProvider(state.Authorisation.Provider)
	loggedIn := state.Authorisation.Provider != nil && state.Authorisation.Provider.IsLoggedIn()

	settled := (loggedIn && m.wasLoading && !loading) ||
		(!loading && !m.wasLoggedIn && loggedIn)

	m.wasLoading = loading
	m.wasLoggedIn = loggedIn

	if settled {
		s.Dispatch(RequestPluginRerender())
	}
}

// Listen attaches the plugin-to-host handler to the bus. The returned
// function detaches it.
func (m *PluginMediator) Listen(s *Store) func() {
	return m.bus.Attach(func(msg Message) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error("panic while handling plugin message %s: %v", msg.Type, rec)
			}
		}()
		m.handle(s, msg)
	})
}

func (m *PluginMediator) handle(s *Store, msg Message) {
	if !strings.HasPrefix(msg.Type, PluginAPIPrefix) {
		m.logger.Error("invalid message received from a plugin, dropped: %s: %v",
			print.MaybePrettyJSON(msg), ErrInvalidEnvelope)
		return
	}

	switch msg.Type {
	case RequestPluginRerenderType, SendThemeOptionsType, RequestPluginRemountType:
		// Host-originated types reflected back by the shared channel.

	case RegisterRouteType:
		m.handleRegisterRoute(s, msg)

	case NotificationType:
		m.handleNotification(s, msg)

	case InvalidateTokenType:
		m.handleInvalidateToken(s)

	default:
		m.logger.Warn("unexpected message received from plugin, not dispatched: %s", print.MaybePrettyJSON(msg))
	}
}

func (m *PluginMediator) handleRegisterRoute(s *Store, msg Message) {
	var payload RegisterRoutePayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		m.logger.Error("malformed register_route payload, dropped: %v", err)
		return
	}
	if err := payload.Validate(); err != nil {
		m.logger.Error("invalid register_route payload, dropped: %v", err)
		return
	}

	s.Dispatch(Action{Type: RegisterRouteType, Payload: payload})

	if steps := payload.TourSteps(); len(steps) > 0 {
		s.Dispatch(AddHelpTourSteps(steps))
	}

	// Redirect to a configured start or homepage route once its plugin
	// registers, but only from the default landing route.
	state := s.State()
	if m.nav != nil && m.nav.Path() == "/" {
		if state.StartURL != "" && state.StartURL == payload.Link {
			m.nav.Push(payload.Link, map[string]any{
				"scigateway": map[string]any{"startUrl": payload.Link},
			})
		} else if state.HomepageURL != "" && state.HomepageURL == payload.Link {
			m.nav.Push(payload.Link, map[string]any{
				"scigateway": map[string]any{"homepageUrl": payload.Link},
			})
		}
	}

	s.Dispatch(SendThemeOptions(BuildTheme(state.DarkMode, state.HighContrast)))
}

func (m *PluginMediator) handleNotification(s *Store, msg Message) {
	var payload NotificationPayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		m.logger.Error("malformed notification payload, dropped: %v", err)
		return
	}
	if err := payload.Validate(); err != nil {
		m.logger.Error("invalid notification payload, dropped: %v", err)
		return
	}

	// Strip the broadcast flag so a notification that already crossed
	// the bus is not mirrored out again.
	payload.Broadcast = false
	s.Dispatch(Action{Type: NotificationType, Payload: payload})

	switch payload.Severity {
	case "error":
		m.toasts.Error("Error", payload.Message)
	case "warning":
		m.toasts.Warning("Warning", payload.Message)
	}
}

// handleInvalidateToken treats refresh as a recovery attempt: the
// session is only torn down when refresh is unsupported or fails.
func (m *PluginMediator) handleInvalidateToken(s *Store) {
	provider := s.State().Authorisation.Provider

	if refresher, ok := provider.(RefreshProvider); ok {
		err := refresher.Refresh(context.Background())
		if err == nil {
			return
		}
		m.logger.Info("token refresh failed, signing out: %v", err)
	}

	s.Dispatch(InvalidToken())
}

// decodePayload converts the raw envelope map into a typed payload.
func decodePayload(payload map[string]any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
