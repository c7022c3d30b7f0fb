package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gateway "github.com/goliatone/go-gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveJSON(t *testing.T, mux *http.ServeMux, path string, status int, body any) {
	t.Helper()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			require.NoError(t, json.NewEncoder(w).Encode(body))
		}
	})
}

func newBootstrapper(t *testing.T, settingsURL string, states gateway.StateStore, logger *captureLogger) (*gateway.Bootstrapper, *gateway.Store) {
	t.Helper()

	if states == nil {
		states = gateway.NewMemoryStore()
	}
	if logger == nil {
		logger = &captureLogger{}
	}

	store := gateway.NewStore(gateway.WithStoreLogger(logger))
	registry := gateway.NewProviderRegistry(gateway.ProviderDeps{States: states, Logger: logger})
	bus := gateway.NewMessageBus()

	b := gateway.NewBootstrapper(store, registry, states, bus, settingsURL,
		gateway.WithBootstrapLogger(logger),
	)
	return b, store
}

func TestBootstrapHydratesSiteState(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/res/default.json", http.StatusOK, map[string]map[string]string{
		"login": {"title": "Sign in"},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider":  "anon",
		"features":       map[string]bool{"showHelpPageButton": true},
		"ui-strings":     server.URL + "/res/default.json",
		"ga-tracking-id": "UA-0000-1",
		"startUrl":       "/plugin1/main",
		"homepageUrl":    "/home",
		"routes": []map[string]any{
			{
				"section":     "Data",
				"link":        "/plugin1/main",
				"plugin":      "plugin1",
				"displayName": "Plugin One",
				"order":       1,
			},
		},
		"help-tour-steps": []map[string]string{
			{"target": "#welcome", "content": "welcome to the site"},
		},
	})

	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, nil)
	require.NoError(t, b.Run(context.Background()))

	state := store.State()
	assert.False(t, state.SiteLoading)
	assert.Equal(t, "anon", state.Authorisation.Provider.Name())
	assert.True(t, state.Features["showHelpPageButton"])
	assert.Equal(t, "Sign in", state.Res["login"]["title"])
	require.NotNil(t, state.Analytics)
	assert.Equal(t, "UA-0000-1", state.Analytics.ID)
	assert.Equal(t, "/plugin1/main", state.StartURL)
	assert.Equal(t, "/home", state.HomepageURL)
	require.Len(t, state.Plugins, 1)
	assert.Equal(t, "Plugin One", state.Plugins[0].DisplayName)
	require.Len(t, state.HelpSteps, 1)
	assert.Equal(t, "#welcome", state.HelpSteps[0].Target)
}

func TestBootstrapSettingsFetchFailureStillClearsLoading(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/settings.json", http.StatusNotFound, nil)
	server := httptest.NewServer(mux)
	defer server.Close()

	logger := &captureLogger{}
	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, logger)

	err := b.Run(context.Background())
	require.Error(t, err)

	assert.False(t, store.State().SiteLoading)
	require.NotEmpty(t, logger.errorLines())
	assert.Contains(t, logger.errorLines()[0], "Error loading settings.json")
}

func TestBootstrapRejectsSettingsWithoutProvider(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"features": map[string]bool{},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, nil)

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrInvalidSettings)
	assert.True(t, gateway.IsConfigError(err))
	assert.True(t, gateway.IsTransitionalProvider(store.State().Authorisation.Provider))
}

func TestBootstrapRejectsUnknownProvider(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "nonsense",
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	b, _ := newBootstrapper(t, server.URL+"/settings.json", nil, nil)

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnknownAuthProvider)
}

func TestBootstrapStringsFailureIsNonFatal(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/res/default.json", http.StatusInternalServerError, nil)
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "anon",
		"ui-strings":    server.URL + "/res/default.json",
	})

	logger := &captureLogger{}
	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, logger)

	require.NoError(t, b.Run(context.Background()))

	assert.Nil(t, store.State().Res)
	require.NotEmpty(t, logger.errorLines())
	assert.Contains(t, logger.errorLines()[0], "Failed to read strings from")
}

func TestBootstrapRestoresVerifiedSession(t *testing.T) {
	var logins int
	mux := http.NewServeMux()
	serveJSON(t, mux, "/verify", http.StatusOK, nil)
	serveJSON(t, mux, "/maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/scheduled_maintenance", http.StatusOK, gateway.MaintenanceState{})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "icat",
		"authUrl":       server.URL,
	})

	states := gateway.NewMemoryStore()
	require.NoError(t, states.Set(context.Background(), gateway.KeyToken, "stored-token"))

	b, store := newBootstrapper(t, server.URL+"/settings.json", states, nil)
	require.NoError(t, b.Run(context.Background()))

	auth := store.State().Authorisation
	assert.Equal(t, gateway.PhaseAuthenticated, auth.Phase())
	assert.Zero(t, logins)
}

func TestBootstrapFallsBackToAutoLoginWhenTokenRejected(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/verify", http.StatusUnauthorized, nil)
	serveJSON(t, mux, "/maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/scheduled_maintenance", http.StatusOK, gateway.MaintenanceState{})

	var loginReq map[string]any
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&loginReq))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"token": "anon-token", "username": "anonymous"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "icat",
		"authUrl":       server.URL,
		"autoLogin":     true,
	})

	states := gateway.NewMemoryStore()
	require.NoError(t, states.Set(context.Background(), gateway.KeyToken, "expired-token"))

	b, store := newBootstrapper(t, server.URL+"/settings.json", states, nil)
	require.NoError(t, b.Run(context.Background()))

	auth := store.State().Authorisation
	assert.Equal(t, gateway.PhaseAuthenticated, auth.Phase())
	assert.Equal(t, "anon", loginReq["mnemonic"])

	marker, err := states.Get(context.Background(), gateway.KeyAutoLogin)
	require.NoError(t, err)
	assert.Equal(t, "true", marker)

	token, err := states.Get(context.Background(), gateway.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "anon-token", token)
}

func TestBootstrapAutoLoginWithoutStoredSession(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/scheduled_maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/login", http.StatusOK, map[string]any{"token": "anon-token"})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "icat",
		"authUrl":       server.URL,
		"autoLogin":     true,
	})

	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, nil)
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, gateway.PhaseAuthenticated, store.State().Authorisation.Phase())
}

func TestBootstrapResolvesRelativeStringsPath(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/res/default.json", http.StatusOK, map[string]map[string]string{
		"login": {"title": "Sign in"},
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "anon",
		"ui-strings":    "res/default.json",
	})

	logger := &captureLogger{}
	states := gateway.NewMemoryStore()
	store := gateway.NewStore(gateway.WithStoreLogger(logger))
	registry := gateway.NewProviderRegistry(gateway.ProviderDeps{States: states, Logger: logger})
	bus := gateway.NewMessageBus()

	b := gateway.NewBootstrapper(store, registry, states, bus, server.URL+"/settings.json",
		gateway.WithBootstrapLogger(logger),
		gateway.WithStringsBase(server.URL),
	)
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, "Sign in", store.State().Res["login"]["title"])
	assert.Empty(t, logger.errorLines())
}

func TestBootstrapAttemptsAutoLoginWithoutSettingsKey(t *testing.T) {
	var logins int
	mux := http.NewServeMux()
	serveJSON(t, mux, "/maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/scheduled_maintenance", http.StatusOK, gateway.MaintenanceState{})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"token": "anon-token"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "icat",
		"authUrl":       server.URL,
	})

	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, nil)
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, gateway.PhaseAuthenticated, store.State().Authorisation.Phase())
	assert.Equal(t, 1, logins)
}

func TestBootstrapAutoLoginSettingsKeyIsAnOptOut(t *testing.T) {
	var logins int
	mux := http.NewServeMux()
	serveJSON(t, mux, "/maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/scheduled_maintenance", http.StatusOK, gateway.MaintenanceState{})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"token": "anon-token"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "icat",
		"authUrl":       server.URL,
		"autoLogin":     false,
	})

	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, nil)
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, gateway.PhaseUnauthenticated, store.State().Authorisation.Phase())
	assert.Zero(t, logins)
}

func TestBootstrapAutoLoginFailureLeavesSessionUnauthenticated(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/scheduled_maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/login", http.StatusInternalServerError, nil)
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "icat",
		"authUrl":       server.URL,
		"autoLogin":     true,
	})

	b, store := newBootstrapper(t, server.URL+"/settings.json", nil, nil)
	require.NoError(t, b.Run(context.Background()))

	state := store.State()
	auth := state.Authorisation
	assert.Equal(t, gateway.PhaseUnauthenticated, auth.Phase())
	assert.False(t, auth.Loading)
	assert.False(t, auth.FailedToLogin)
	assert.False(t, state.SiteLoading)
}

func TestBootstrapScheduledMaintenanceSurfacesWarning(t *testing.T) {
	mux := http.NewServeMux()
	serveJSON(t, mux, "/maintenance", http.StatusOK, gateway.MaintenanceState{})
	serveJSON(t, mux, "/scheduled_maintenance", http.StatusOK, gateway.MaintenanceState{
		Show:    true,
		Message: "down for maintenance on Tuesday",
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "icat",
		"authUrl":       server.URL,
	})

	logger := &captureLogger{}
	states := gateway.NewMemoryStore()
	registry := gateway.NewProviderRegistry(gateway.ProviderDeps{States: states, Logger: logger})
	bus := gateway.NewMessageBus()

	var broadcasts []gateway.Message
	bus.Attach(func(msg gateway.Message) { broadcasts = append(broadcasts, msg) })

	mediator := gateway.NewPluginMediator(bus, &fakeNavigator{path: "/"},
		gateway.WithMediatorLogger(logger),
	)
	store := gateway.NewStore(
		gateway.WithStoreLogger(logger),
		gateway.WithMiddleware(mediator.Middleware()),
	)
	detach := mediator.Listen(store)
	defer detach()

	b := gateway.NewBootstrapper(store, registry, states, bus, server.URL+"/settings.json",
		gateway.WithBootstrapLogger(logger),
	)
	require.NoError(t, b.Run(context.Background()))

	state := store.State()
	assert.True(t, state.ScheduledMaintenance.Show)
	require.Len(t, state.Notifications, 1)
	assert.Equal(t, "down for maintenance on Tuesday", state.Notifications[0].Message)

	require.NotEmpty(t, broadcasts)
	found := false
	for _, msg := range broadcasts {
		if msg.Type == gateway.NotificationType {
			found = true
			assert.Equal(t, "down for maintenance on Tuesday", msg.Payload["message"])
		}
	}
	assert.True(t, found)
}

func TestBootstrapRestoresThemePreferences(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	serveJSON(t, mux, "/settings.json", http.StatusOK, map[string]any{
		"auth-provider": "anon",
	})

	states := gateway.NewMemoryStore()
	require.NoError(t, states.Set(context.Background(), gateway.KeyDarkMode, "true"))
	require.NoError(t, states.Set(context.Background(), gateway.KeyHighContrastMode, "false"))

	b, store := newBootstrapper(t, server.URL+"/settings.json", states, nil)
	require.NoError(t, b.Run(context.Background()))

	state := store.State()
	assert.True(t, state.DarkMode)
	assert.False(t, state.HighContrast)
}
