package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// providerBase carries what every concrete provider shares: the
// backend base URL, an HTTP client, the persisted state store used for
// the token, and a logger. Token reads go through the store so a
// restarted host resumes the previous session.
type providerBase struct {
	name    string
	authURL string
	client  *http.Client
	states  StateStore
	logger  Logger

	user *UserInfo
}

func newProviderBase(name, authURL string, deps ProviderDeps) providerBase {
	client := deps.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := deps.Logger
	if logger == nil {
		logger = defLogger{}
	}
	states := deps.States
	if states == nil {
		states = NewMemoryStore()
	}
	return providerBase{
		name:    name,
		authURL: authURL,
		client:  client,
		states:  states,
		logger:  logger,
	}
}

func (b *providerBase) Name() string { return b.name }

func (b *providerBase) Token() string {
	token, err := b.states.Get(context.Background(), KeyToken)
	if err != nil {
		return ""
	}
	return token
}

// IsLoggedIn derives from token presence; the most recent successful
// LogIn/VerifyLogIn/AutoLogin stored it, SignOut cleared it.
func (b *providerBase) IsLoggedIn() bool { return b.Token() != "" }

func (b *providerBase) UserInfo() UserInfo {
	if b.user == nil {
		return UserInfo{}
	}
	return *b.user
}

func (b *providerBase) storeToken(token string) {
	if err := b.states.Set(context.Background(), KeyToken, token); err != nil {
		b.logger.Error("failed to persist token: %v", err)
	}
}

func (b *providerBase) SignOut() {
	if err := b.states.Delete(context.Background(), KeyToken); err != nil {
		b.logger.Error("failed to clear token: %v", err)
	}
	b.user = nil
}

// postJSON posts a JSON body and decodes a JSON response into out (out
// may be nil when the body is irrelevant). Non-2xx responses map to
// ErrTokenRejected/ErrBadCredentials at the call sites; here they are
// plain errors with the status attached.
func (b *providerBase) postJSON(ctx context.Context, url string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryOperation, "auth request failed")
	}
	defer res.Body.Close()

	if out != nil && res.StatusCode >= 200 && res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return res.StatusCode, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode auth response")
		}
		return res.StatusCode, nil
	}

	io.Copy(io.Discard, res.Body)
	return res.StatusCode, nil
}

func (b *providerBase) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}

	res, err := b.client.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "auth request failed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		io.Copy(io.Discard, res.Body)
		return goerrors.New("unexpected status", goerrors.CategoryOperation).
			WithMetadata(map[string]any{"status": res.StatusCode, "url": url})
	}

	return json.NewDecoder(res.Body).Decode(out)
}

// LoadingAuthProvider is the inert placeholder active before the
// settings document resolves the real provider. The route gate treats
// it as a transitional state and renders nothing conclusive.
type LoadingAuthProvider struct{}

func NewLoadingAuthProvider() *LoadingAuthProvider { return &LoadingAuthProvider{} }

func (p *LoadingAuthProvider) Name() string       { return "loading" }
func (p *LoadingAuthProvider) Token() string      { return "" }
func (p *LoadingAuthProvider) IsLoggedIn() bool   { return false }
func (p *LoadingAuthProvider) IsAdmin() bool      { return false }
func (p *LoadingAuthProvider) UserInfo() UserInfo { return UserInfo{} }
func (p *LoadingAuthProvider) SignOut()           {}

func (p *LoadingAuthProvider) LogIn(context.Context, string, string) error {
	return ErrUnsupportedOperation
}

func (p *LoadingAuthProvider) VerifyLogIn(context.Context) error {
	return ErrUnsupportedOperation
}

// IsTransitionalProvider reports whether the provider is the
// pre-settings placeholder.
func IsTransitionalProvider(p AuthProvider) bool {
	_, ok := p.(*LoadingAuthProvider)
	return ok
}

// AnonAuthProvider grants access without authentication. Used for
// deployments that gate nothing.
type AnonAuthProvider struct {
	logger Logger
}

func NewAnonAuthProvider(deps ProviderDeps) *AnonAuthProvider {
	logger := deps.Logger
	if logger == nil {
		logger = defLogger{}
	}
	return &AnonAuthProvider{logger: logger}
}

func (p *AnonAuthProvider) Name() string       { return "anon" }
func (p *AnonAuthProvider) Token() string      { return "" }
func (p *AnonAuthProvider) IsLoggedIn() bool   { return true }
func (p *AnonAuthProvider) IsAdmin() bool      { return false }
func (p *AnonAuthProvider) UserInfo() UserInfo { return UserInfo{Username: "anonymous"} }
func (p *AnonAuthProvider) SignOut()           {}

func (p *AnonAuthProvider) LogIn(context.Context, string, string) error { return nil }
func (p *AnonAuthProvider) VerifyLogIn(context.Context) error           { return nil }
