package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Settings is the deployment-time site configuration fetched at
// startup. Field names track the settings.json document, which is
// shared with plugin deployments.
type Settings struct {
	AuthProvider  string          `json:"auth-provider"`
	AuthURL       string          `json:"authUrl"`
	AutoLogin     *bool           `json:"autoLogin"`
	Features      FeatureSwitches `json:"features"`
	UIStringsURL  string          `json:"ui-strings"`
	GATrackingID  string          `json:"ga-tracking-id"`
	StartURL      string          `json:"startUrl"`
	HomepageURL   string          `json:"homepageUrl"`
	HelpTourSteps []HelpStep      `json:"help-tour-steps"`
	Routes        []SettingsRoute `json:"routes"`
}

// AutoLoginEnabled reports whether anonymous auto login may be
// attempted. The document key is an explicit opt-out; absence means
// enabled, the attempt itself still depends on provider capability.
func (s Settings) AutoLoginEnabled() bool {
	return s.AutoLogin == nil || *s.AutoLogin
}

func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.AuthProvider, validation.Required),
	)
}

// SettingsRoute declares a route in settings.json rather than through
// the runtime register_route message, used for statically deployed
// plugins.
type SettingsRoute struct {
	Section     string `json:"section"`
	Link        string `json:"link"`
	Plugin      string `json:"plugin"`
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
	Admin       bool   `json:"admin"`
}

func (r SettingsRoute) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Section, validation.Required),
		validation.Field(&r.Link, validation.Required),
		validation.Field(&r.Plugin, validation.Required),
		validation.Field(&r.DisplayName, validation.Required),
	)
}

// Bootstrapper runs the startup sequence: fetch and validate settings,
// construct the auth provider, restore a prior session, and hydrate
// site-wide state. Whatever happens, the site leaves its loading state
// exactly once at the end.
type Bootstrapper struct {
	store    *Store
	registry *ProviderRegistry
	states   StateStore
	bus      Bus
	client   *http.Client
	logger   Logger

	settingsURL string
	stringsBase string
}

// BootstrapOption customizes bootstrap construction.
type BootstrapOption func(*Bootstrapper)

func WithBootstrapLogger(logger Logger) BootstrapOption {
	return func(b *Bootstrapper) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithHTTPClient(client *http.Client) BootstrapOption {
	return func(b *Bootstrapper) {
		if client != nil {
			b.client = client
		}
	}
}

// WithStringsBase sets the base URL that relative ui-strings paths are
// resolved against.
func WithStringsBase(base string) BootstrapOption {
	return func(b *Bootstrapper) {
		b.stringsBase = strings.TrimSuffix(base, "/")
	}
}

func NewBootstrapper(store *Store, registry *ProviderRegistry, states StateStore, bus Bus, settingsURL string, opts ...BootstrapOption) *Bootstrapper {
	b := &Bootstrapper{
		store:       store,
		registry:    registry,
		states:      states,
		bus:         bus,
		client:      http.DefaultClient,
		logger:      defLogger{},
		settingsURL: settingsURL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Run executes the full startup sequence. The terminal loading update
// is deferred so that every exit path, including settings failures,
// releases the loading screen.
func (b *Bootstrapper) Run(ctx context.Context) error {
	defer b.store.Dispatch(SiteLoadingUpdate(false))

	settings, err := b.loadSettings(ctx)
	if err != nil {
		b.logger.Error("Error loading settings.json: %v", err)
		return err
	}

	provider, err := b.registry.Resolve(settings.AuthProvider, ProviderConfig{
		AuthURL: settings.AuthURL,
	})
	if err != nil {
		b.logger.Error("Error loading settings.json: %v", err)
		return err
	}

	b.store.Dispatch(LoadAuthProvider(provider))

	b.applySiteConfig(ctx, settings)
	b.restoreSession(ctx, provider, settings.AutoLoginEnabled())
	b.loadMaintenance(ctx, provider)
	b.loadThemePreferences(ctx)

	return nil
}

func (b *Bootstrapper) loadSettings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := fetchJSON(ctx, b.client, b.settingsURL, &settings); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, enrich(ErrInvalidSettings, map[string]any{
			"validation": err.Error(),
		})
	}

	for _, route := range settings.Routes {
		if err := route.Validate(); err != nil {
			return nil, enrich(ErrInvalidSettings, map[string]any{
				"route":      route.Link,
				"validation": err.Error(),
			})
		}
	}

	return &settings, nil
}

// applySiteConfig hydrates the non-auth parts of site state from the
// settings document.
func (b *Bootstrapper) applySiteConfig(ctx context.Context, settings *Settings) {
	if settings.Features != nil {
		b.store.Dispatch(LoadFeatureSwitches(settings.Features))
	}

	if settings.UIStringsURL != "" {
		b.loadStrings(ctx, settings.UIStringsURL)
	}

	if settings.GATrackingID != "" {
		b.store.Dispatch(ConfigureAnalytics(settings.GATrackingID))
	}

	if settings.StartURL != "" {
		b.store.Dispatch(RegisterStartURL(settings.StartURL))
	}

	if settings.HomepageURL != "" {
		b.store.Dispatch(RegisterHomepageURL(settings.HomepageURL))
	}

	for _, route := range settings.Routes {
		b.store.Dispatch(Action{Type: RegisterRouteType, Payload: RegisterRoutePayload{
			Section:     route.Section,
			Link:        route.Link,
			Plugin:      route.Plugin,
			DisplayName: route.DisplayName,
			Order:       route.Order,
			Admin:       route.Admin,
		}})
	}

	if len(settings.HelpTourSteps) > 0 {
		b.store.Dispatch(AddHelpTourSteps(settings.HelpTourSteps))
	}
}

// loadStrings fetches the translated resource bundle. Relative paths
// are resolved against the configured base so a routed deployment
// under a sub-path still finds its bundle.
func (b *Bootstrapper) loadStrings(ctx context.Context, path string) {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		url = b.stringsBase + path
	}

	var res StringResources
	if err := fetchJSON(ctx, b.client, url, &res); err != nil {
		b.logger.Error("Failed to read strings from %s: %v", url, err)
		return
	}

	b.store.Dispatch(ConfigureStrings(res))
}

// restoreSession re-establishes a previous session when a stored token
// still verifies, and otherwise falls back to anonymous auto login on
// providers that support it.
func (b *Bootstrapper) restoreSession(ctx context.Context, provider AuthProvider, autoLogin bool) {
	if provider.IsLoggedIn() {
		b.store.Dispatch(LoadingAuthentication())
		generation := b.store.State().Authorisation.Generation

		if err := provider.VerifyLogIn(ctx); err == nil {
			b.store.Dispatch(Authorised(generation))
			return
		}

		b.logger.Info("stored token no longer verifies, starting a fresh session")
		if b.tryAutoLogin(ctx, provider, autoLogin, generation) {
			return
		}

		b.store.Dispatch(InvalidToken())
		return
	}

	if _, ok := provider.(AutoLoginProvider); !ok || !autoLogin {
		return
	}

	b.store.Dispatch(LoadingAuthentication())
	generation := b.store.State().Authorisation.Generation

	if b.tryAutoLogin(ctx, provider, autoLogin, generation) {
		return
	}

	// A failed anonymous login is not a failed user login; the
	// session just stays unauthenticated.
	b.store.Dispatch(LoadedAuthentication(generation))
}

func (b *Bootstrapper) tryAutoLogin(ctx context.Context, provider AuthProvider, enabled bool, generation uint64) bool {
	if !enabled {
		return false
	}

	auto, ok := provider.(AutoLoginProvider)
	if !ok {
		return false
	}

	if err := auto.AutoLogin(ctx); err != nil {
		b.logger.Warn("automatic anonymous login failed: %v", err)
		return false
	}

	b.store.Dispatch(Authorised(generation))
	return true
}

// loadMaintenance pulls current and scheduled maintenance state from
// providers that expose it. A pending scheduled maintenance message is
// surfaced once as a broadcast warning so plugins can show it too.
func (b *Bootstrapper) loadMaintenance(ctx context.Context, provider AuthProvider) {
	mp, ok := provider.(MaintenanceProvider)
	if !ok {
		return
	}

	if current, err := mp.FetchMaintenanceState(ctx); err != nil {
		b.logger.Warn("failed to fetch maintenance state: %v", err)
	} else {
		b.store.Dispatch(LoadMaintenanceState(current))
	}

	scheduled, err := mp.FetchScheduledMaintenanceState(ctx)
	if err != nil {
		b.logger.Warn("failed to fetch scheduled maintenance state: %v", err)
		return
	}

	b.store.Dispatch(LoadScheduledMaintenanceState(scheduled))

	if scheduled.Show && scheduled.Message != "" {
		b.store.Dispatch(BroadcastNotification(scheduled.Message, "warning"))
	}
}

// loadThemePreferences restores persisted display preferences. Missing
// keys mean first visit and keep the defaults.
func (b *Bootstrapper) loadThemePreferences(ctx context.Context) {
	if dark, err := b.states.Get(ctx, KeyDarkMode); err == nil {
		b.store.Dispatch(LoadDarkModePreference(dark == "true"))
	} else if !errors.Is(err, ErrStateKeyNotFound) {
		b.logger.Warn("failed to read dark mode preference: %v", err)
	}

	if contrast, err := b.states.Get(ctx, KeyHighContrastMode); err == nil {
		b.store.Dispatch(LoadHighContrastModePreference(contrast == "true"))
	} else if !errors.Is(err, ErrStateKeyNotFound) {
		b.logger.Warn("failed to read high contrast preference: %v", err)
	}
}

// fetchJSON issues a GET and decodes the JSON body into out.
func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", res.StatusCode, url)
	}

	return json.NewDecoder(res.Body).Decode(out)
}
