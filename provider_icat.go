package gateway

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const anonMnemonic = "anon"

// ICATAuthProvider authenticates against an ICAT-style backend where a
// single auth service multiplexes several authenticator instances,
// selected by mnemonic. It supports anonymous auto-login and
// maintenance state queries.
type ICATAuthProvider struct {
	providerBase
	mnemonic string
	admin    bool
}

var (
	_ AuthProvider        = (*ICATAuthProvider)(nil)
	_ AutoLoginProvider   = (*ICATAuthProvider)(nil)
	_ RefreshProvider     = (*ICATAuthProvider)(nil)
	_ MaintenanceProvider = (*ICATAuthProvider)(nil)
	_ MaintenanceUpdater  = (*ICATAuthProvider)(nil)
)

func NewICATAuthProvider(authURL, mnemonic string, deps ProviderDeps) *ICATAuthProvider {
	return &ICATAuthProvider{
		providerBase: newProviderBase("icat", authURL, deps),
		mnemonic:     mnemonic,
	}
}

type icatLoginRequest struct {
	Mnemonic    string              `json:"mnemonic"`
	Credentials []map[string]string `json:"credentials"`
}

type icatSessionResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (p *ICATAuthProvider) LogIn(ctx context.Context, username, password string) error {
	return p.logInWith(ctx, p.mnemonic, username, password)
}

// AutoLogin establishes an anonymous session. Its failure is non-fatal
// at bootstrap; the session simply stays unauthenticated.
func (p *ICATAuthProvider) AutoLogin(ctx context.Context) error {
	if err := p.logInWith(ctx, anonMnemonic, "", ""); err != nil {
		return err
	}
	if err := p.states.Set(ctx, KeyAutoLogin, "true"); err != nil {
		p.logger.Error("failed to persist auto-login marker: %v", err)
	}
	return nil
}

func (p *ICATAuthProvider) logInWith(ctx context.Context, mnemonic, username, password string) error {
	body := icatLoginRequest{
		Mnemonic: mnemonic,
		Credentials: []map[string]string{
			{"username": username},
			{"password": password},
		},
	}

	var res icatSessionResponse
	status, err := p.postJSON(ctx, p.authURL+"/login", body, &res)
	if err != nil {
		p.logger.Error("icat login request failed: %v", err)
		return ErrBadCredentials
	}
	if status != http.StatusOK || res.Token == "" {
		return ErrBadCredentials
	}

	p.storeToken(res.Token)
	p.user = &UserInfo{Username: res.Username}
	p.admin = res.IsAdmin
	if mnemonic != anonMnemonic {
		if err := p.states.Delete(ctx, KeyAutoLogin); err != nil && !errors.Is(err, ErrStateKeyNotFound) {
			p.logger.Error("failed to clear auto-login marker: %v", err)
		}
	}
	return nil
}

func (p *ICATAuthProvider) VerifyLogIn(ctx context.Context) error {
	token := p.Token()
	if token == "" {
		return ErrNoToken
	}

	status, err := p.postJSON(ctx, p.authURL+"/verify", map[string]string{
		"token": token,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return enrich(ErrTokenRejected, map[string]any{"status": status})
	}
	return nil
}

func (p *ICATAuthProvider) Refresh(ctx context.Context) error {
	token := p.Token()
	if token == "" {
		return ErrNoToken
	}

	var res icatSessionResponse
	status, err := p.postJSON(ctx, p.authURL+"/refresh", map[string]string{
		"token": token,
	}, &res)
	if err != nil {
		return err
	}
	if status != http.StatusOK || res.Token == "" {
		return enrich(ErrTokenRejected, map[string]any{"status": status})
	}

	p.storeToken(res.Token)
	return nil
}

func (p *ICATAuthProvider) IsAdmin() bool { return p.admin }

func (p *ICATAuthProvider) FetchMaintenanceState(ctx context.Context) (MaintenanceState, error) {
	var state MaintenanceState
	if err := p.getJSON(ctx, p.authURL+"/maintenance", &state); err != nil {
		return MaintenanceState{}, err
	}
	return state, nil
}

func (p *ICATAuthProvider) FetchScheduledMaintenanceState(ctx context.Context) (MaintenanceState, error) {
	var state MaintenanceState
	if err := p.getJSON(ctx, p.authURL+"/scheduled_maintenance", &state); err != nil {
		return MaintenanceState{}, err
	}
	return state, nil
}

func (p *ICATAuthProvider) SetMaintenanceState(ctx context.Context, state MaintenanceState) error {
	return p.putMaintenance(ctx, p.authURL+"/maintenance", state)
}

func (p *ICATAuthProvider) SetScheduledMaintenanceState(ctx context.Context, state MaintenanceState) error {
	return p.putMaintenance(ctx, p.authURL+"/scheduled_maintenance", state)
}

func (p *ICATAuthProvider) putMaintenance(ctx context.Context, url string, state MaintenanceState) error {
	status, err := p.postJSON(ctx, url, map[string]any{
		"token":   p.Token(),
		"content": state,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return goerrors.New("failed to update maintenance state", goerrors.CategoryOperation).
			WithMetadata(map[string]any{"status": status})
	}
	return nil
}
