package gateway

// SessionPhase is the derived lifecycle state of the session.
type SessionPhase string

const (
	PhaseUnauthenticated         SessionPhase = "unauthenticated"
	PhaseAuthenticating          SessionPhase = "authenticating"
	PhaseAuthenticated           SessionPhase = "authenticated"
	PhaseAuthenticationFailed    SessionPhase = "authentication_failed"
	PhaseSignedOutByInvalidation SessionPhase = "signed_out_by_invalidation"
)

// SessionState holds the active provider plus the derived flags the
// route gate and views consult. At most one of FailedToLogin and
// SignedOutDueToTokenInvalidation is causal at a time; both reset
// together when a new login attempt starts.
type SessionState struct {
	Provider AuthProvider
	Loading  bool

	FailedToLogin                   bool
	SignedOutDueToTokenInvalidation bool

	// Generation increments whenever a new authentication attempt
	// starts. Async resolutions carrying a stale generation are
	// discarded so a superseded login can never overwrite fresher
	// state.
	Generation uint64
}

// Phase derives the lifecycle state from the flags.
func (s SessionState) Phase() SessionPhase {
	switch {
	case s.Loading:
		return PhaseAuthenticating
	case s.SignedOutDueToTokenInvalidation:
		return PhaseSignedOutByInvalidation
	case s.FailedToLogin:
		return PhaseAuthenticationFailed
	case s.Provider != nil && s.Provider.IsLoggedIn():
		return PhaseAuthenticated
	default:
		return PhaseUnauthenticated
	}
}

// PluginRegistration is one route contributed by a plugin bundle. Link
// is the unique key; duplicate displayName+section pairs with distinct
// links are permitted.
type PluginRegistration struct {
	Section     string `json:"section"`
	Link        string `json:"link"`
	Plugin      string `json:"plugin"`
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
	HelpText    string `json:"helpText,omitempty"`
	Admin       bool   `json:"admin,omitempty"`
}

// FeatureSwitches is the named boolean switch map from the settings
// document.
type FeatureSwitches map[string]bool

// StringResources holds UI strings keyed by section then id.
type StringResources map[string]map[string]string

// AnalyticsConfig records the tracking id plus whether the tracker has
// been initialised. Configuration and initialisation are separate
// steps.
type AnalyticsConfig struct {
	ID          string
	Initialised bool
}

// State is the whole host state. It is only mutated through
// Store.Dispatch; readers get value snapshots.
type State struct {
	Notifications []Notification
	Plugins       []PluginRegistration
	HelpSteps     []HelpStep

	DrawerOpen bool
	ShowHelp   bool

	Authorisation SessionState

	Res      StringResources
	Features FeatureSwitches

	Analytics *AnalyticsConfig

	SiteLoading bool
	StartURL    string
	HomepageURL string

	Maintenance          MaintenanceState
	ScheduledMaintenance MaintenanceState

	DarkMode     bool
	HighContrast bool
}

// InitialState returns the state before bootstrap: site loading, an
// inert provider, empty registries.
func InitialState() State {
	return State{
		SiteLoading: true,
		Features:    FeatureSwitches{},
		Authorisation: SessionState{
			Provider: NewLoadingAuthProvider(),
		},
	}
}

// hasRoute reports whether a registration with the given link exists.
func (s State) hasRoute(link string) bool {
	for _, p := range s.Plugins {
		if p.Link == link {
			return true
		}
	}
	return false
}

// hasHelpStep reports whether a help step with the given target exists.
func (s State) hasHelpStep(target string) bool {
	for _, h := range s.HelpSteps {
		if h.Target == target {
			return true
		}
	}
	return false
}
