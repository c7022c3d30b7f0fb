package gateway

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ProviderDeps carries the collaborators every provider constructor
// receives.
type ProviderDeps struct {
	Client *http.Client
	States StateStore
	Logger Logger
}

// ProviderConfig is the provider-relevant slice of the settings
// document.
type ProviderConfig struct {
	// AuthURL is the base URL of the authentication backend.
	AuthURL string
	// Mnemonic selects a backend authenticator instance for providers
	// that multiplex several (e.g. ICAT).
	Mnemonic string
}

// ProviderConstructor builds a provider from its configuration.
type ProviderConstructor func(cfg ProviderConfig, deps ProviderDeps) (AuthProvider, error)

// ProviderRegistry is the closed mapping from provider mnemonics to
// constructors. Resolving an unknown mnemonic is a checked
// configuration error, caught at settings load rather than thrown deep
// in rendering.
type ProviderRegistry struct {
	deps         ProviderDeps
	constructors map[string]ProviderConstructor
}

// NewProviderRegistry returns a registry with the built-in providers
// (jwt, icat, github, anon) registered.
func NewProviderRegistry(deps ProviderDeps) *ProviderRegistry {
	if deps.Logger == nil {
		deps.Logger = defLogger{}
	}

	r := &ProviderRegistry{
		deps:         deps,
		constructors: map[string]ProviderConstructor{},
	}

	r.Register("jwt", func(cfg ProviderConfig, deps ProviderDeps) (AuthProvider, error) {
		return NewJWTAuthProvider(cfg.AuthURL, deps), nil
	})
	r.Register("icat", func(cfg ProviderConfig, deps ProviderDeps) (AuthProvider, error) {
		return NewICATAuthProvider(cfg.AuthURL, cfg.Mnemonic, deps), nil
	})
	r.Register("github", func(cfg ProviderConfig, deps ProviderDeps) (AuthProvider, error) {
		return NewGithubAuthProvider(cfg.AuthURL, deps)
	})
	r.Register("anon", func(cfg ProviderConfig, deps ProviderDeps) (AuthProvider, error) {
		return NewAnonAuthProvider(deps), nil
	})

	return r
}

// Register adds or replaces a constructor. Host applications may add
// deployment specific providers before bootstrap runs.
func (r *ProviderRegistry) Register(name string, ctor ProviderConstructor) {
	r.constructors[name] = ctor
}

// Known reports whether a constructor exists for the mnemonic.
func (r *ProviderRegistry) Known(name string) bool {
	_, ok := r.constructors[name]
	return ok
}

// Resolve builds the provider selected by the settings document. The
// selector may carry an authenticator mnemonic after a dot, e.g.
// "icat.ldap".
func (r *ProviderRegistry) Resolve(selector string, cfg ProviderConfig) (AuthProvider, error) {
	name, mnemonic := splitSelector(selector)
	cfg.Mnemonic = mnemonic

	ctor, ok := r.constructors[name]
	if !ok {
		return nil, enrich(ErrUnknownAuthProvider, map[string]any{
			"provider": name,
		})
	}

	provider, err := ctor(cfg, r.deps)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to construct auth provider").
			WithMetadata(map[string]any{"provider": name})
	}

	return provider, nil
}

func splitSelector(selector string) (name, mnemonic string) {
	for i := 0; i < len(selector); i++ {
		if selector[i] == '.' {
			return selector[:i], selector[i+1:]
		}
	}
	return selector, ""
}
