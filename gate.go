package gateway

import "context"

// Route describes a guarded mount point.
type Route struct {
	Path          string
	AdminRequired bool
}

// DecisionKind enumerates route gate outcomes.
type DecisionKind int

const (
	// DecisionPlaceholder renders a neutral loading view while the
	// session is still resolving. Nothing conclusive is shown and no
	// redirect fires from a transient state.
	DecisionPlaceholder DecisionKind = iota
	// DecisionMaintenance renders the maintenance view to non-admin
	// visitors while the site is under maintenance.
	DecisionMaintenance
	// DecisionRedirectLogin sends an unauthenticated visitor to the
	// login route.
	DecisionRedirectLogin
	// DecisionNotFound hides an admin route from a non-admin session.
	DecisionNotFound
	// DecisionRedirectStart sends an authenticated visitor from the
	// landing route to the configured start route.
	DecisionRedirectStart
	// DecisionRender lets the route content through.
	DecisionRender
)

// Decision is a route gate outcome. Target is the redirect destination
// for the redirect kinds and empty otherwise.
type Decision struct {
	Kind   DecisionKind
	Target string
}

// Decide evaluates a route against the current session state. It is
// pure: persistence of the attempted path and token verification are
// side effects that belong to the Gate.
func Decide(state State, route Route) Decision {
	auth := state.Authorisation

	if state.SiteLoading || auth.Loading || IsTransitionalProvider(auth.Provider) {
		return Decision{Kind: DecisionPlaceholder}
	}

	// Maintenance replaces guarded content for non-admin sessions,
	// authenticated or not.
	admin := auth.Provider != nil && auth.Provider.IsAdmin()
	if state.Maintenance.Show && !admin {
		return Decision{Kind: DecisionMaintenance}
	}

	loggedIn := auth.Provider != nil && auth.Provider.IsLoggedIn()
	if !loggedIn {
		return Decision{Kind: DecisionRedirectLogin, Target: LoginPath}
	}

	if route.AdminRequired && !admin {
		return Decision{Kind: DecisionNotFound}
	}

	if route.Path == "/" && state.StartURL != "" {
		return Decision{Kind: DecisionRedirectStart, Target: state.StartURL}
	}

	return Decision{Kind: DecisionRender}
}

// LoginPath is the route the gate redirects unauthenticated visitors
// to.
const LoginPath = "/login"

// Gate wraps the pure decision with its side effects: remembering the
// path an unauthenticated visitor was gated away from, and verifying a
// restored token when guarded content first mounts.
type Gate struct {
	store   *Store
	session *SessionManager
	logger  Logger
}

func NewGate(store *Store, session *SessionManager, logger Logger) *Gate {
	if logger == nil {
		logger = defLogger{}
	}
	return &Gate{store: store, session: session, logger: logger}
}

// Evaluate runs the gate for a route. A login redirect records the
// attempted path so a successful login can return to it.
func (g *Gate) Evaluate(ctx context.Context, route Route) Decision {
	d := Decide(g.store.State(), route)

	if d.Kind == DecisionRedirectLogin && g.session != nil {
		g.session.RememberReferrer(ctx, route.Path)
	}

	return d
}

// EvaluateLogin decides the login route itself. A session established
// by anonymous auto login still gets the login form, so the user can
// upgrade to real credentials.
func (g *Gate) EvaluateLogin(ctx context.Context) Decision {
	state := g.store.State()
	auth := state.Authorisation

	if state.SiteLoading || auth.Loading || IsTransitionalProvider(auth.Provider) {
		return Decision{Kind: DecisionPlaceholder}
	}

	if auth.Provider != nil && auth.Provider.IsLoggedIn() && !g.autoLoggedIn(ctx) {
		return Decision{Kind: DecisionRedirectStart, Target: "/"}
	}

	return Decision{Kind: DecisionRender}
}

func (g *Gate) autoLoggedIn(ctx context.Context) bool {
	if g.session == nil {
		return false
	}
	marker, err := g.session.states.Get(ctx, KeyAutoLogin)
	return err == nil && marker == "true"
}

// VerifyOnMount re-validates a restored session against the backend
// when guarded content first becomes visible. A rejected token tears
// the session down so stale credentials never sit behind live content.
func (g *Gate) VerifyOnMount(ctx context.Context) {
	provider := g.store.State().Authorisation.Provider
	if provider == nil || IsTransitionalProvider(provider) || !provider.IsLoggedIn() {
		return
	}

	if err := provider.VerifyLogIn(ctx); err != nil {
		g.logger.Info("token verification failed on mount: %v", err)
		g.store.Dispatch(InvalidToken())
	}
}
