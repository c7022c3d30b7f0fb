package gateway

import (
	"context"
	"net/http"
)

// Authenticator describes one authentication mechanism offered by the
// backend, as returned by its discovery endpoint. Keys lists the
// credential fields the mechanism expects, so a login form can be built
// for it without hardcoding.
type Authenticator struct {
	Mnemonic string             `json:"mnemonic"`
	Keys     []AuthenticatorKey `json:"keys"`
	Friendly string             `json:"friendly"`
	Admin    bool               `json:"admin"`
}

type AuthenticatorKey struct {
	Name string `json:"name"`
}

// FetchAuthenticators queries the auth backend for its supported
// mechanisms. On failure it reports an error notification through the
// store and returns an empty list, leaving the login form usable with
// its defaults.
func FetchAuthenticators(ctx context.Context, client *http.Client, authURL string, store *Store, logger Logger) []Authenticator {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = defLogger{}
	}

	var authenticators []Authenticator
	if err := fetchJSON(ctx, client, authURL+"/authenticators", &authenticators); err != nil {
		logger.Error("failed to fetch authenticators from %s: %v", authURL, err)
		store.Dispatch(PluginNotification("Failed to fetch authenticator information from the authentication server", "error"))
		return nil
	}

	return authenticators
}
