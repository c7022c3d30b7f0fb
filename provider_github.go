package gateway

import (
	"context"
	"net/http"
)

// GithubAuthProvider authenticates via an external OAuth redirect: the
// view layer sends the user to RedirectURL, GitHub calls back with a
// verification code, and LogIn exchanges the code for a token. Tokens
// are validated locally through a JWKS validator when one is
// configured, falling back to the backend otherwise. The provider has
// no refresh capability; invalidation tears the session down directly.
type GithubAuthProvider struct {
	providerBase
	validator TokenValidator
	redirect  string
}

var (
	_ AuthProvider     = (*GithubAuthProvider)(nil)
	_ RedirectProvider = (*GithubAuthProvider)(nil)
)

func NewGithubAuthProvider(authURL string, deps ProviderDeps) (*GithubAuthProvider, error) {
	return &GithubAuthProvider{
		providerBase: newProviderBase("github", authURL, deps),
		redirect:     "https://github.com/login/oauth/authorize",
	}, nil
}

// WithTokenValidator switches token verification to the given local
// validator (typically a JWKSValidator).
func (p *GithubAuthProvider) WithTokenValidator(v TokenValidator) *GithubAuthProvider {
	p.validator = v
	return p
}

func (p *GithubAuthProvider) RedirectURL() string { return p.redirect }

// LogIn exchanges the OAuth verification code for a token. The
// username argument carries the code; password is unused.
func (p *GithubAuthProvider) LogIn(ctx context.Context, code, _ string) error {
	var res struct {
		Token    string `json:"token"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	status, err := p.postJSON(ctx, p.authURL+"/api/github/authenticate", map[string]string{
		"code": code,
	}, &res)
	if err != nil {
		p.logger.Error("github code exchange failed: %v", err)
		return ErrBadCredentials
	}
	if status != http.StatusOK || res.Token == "" {
		return ErrBadCredentials
	}

	p.storeToken(res.Token)
	p.user = &UserInfo{Username: res.Username, Avatar: res.Avatar}
	return nil
}

func (p *GithubAuthProvider) VerifyLogIn(ctx context.Context) error {
	token := p.Token()
	if token == "" {
		return ErrNoToken
	}

	if p.validator != nil {
		claims, err := p.validator.Validate(token)
		if err != nil {
			return err
		}
		if username, ok := claims["username"].(string); ok {
			avatar, _ := claims["avatar"].(string)
			p.user = &UserInfo{Username: username, Avatar: avatar}
		}
		return nil
	}

	status, err := p.postJSON(ctx, p.authURL+"/api/github/checkToken", map[string]string{
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

func (p *GithubAuthProvider) IsAdmin() bool { return false }
