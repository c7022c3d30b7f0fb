package gateway

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuthProvider authenticates against a JWT-issuing auth service.
// The token itself carries the username and admin flag; claims are
// read locally without signature verification because the backend is
// the trust anchor (verification happens on checkToken).
type JWTAuthProvider struct {
	providerBase
}

var _ AuthProvider = (*JWTAuthProvider)(nil)
var _ RefreshProvider = (*JWTAuthProvider)(nil)

func NewJWTAuthProvider(authURL string, deps ProviderDeps) *JWTAuthProvider {
	return &JWTAuthProvider{
		providerBase: newProviderBase("jwt", authURL, deps),
	}
}

type jwtTokenResponse struct {
	Token string `json:"token"`
}

func (p *JWTAuthProvider) LogIn(ctx context.Context, username, password string) error {
	var res jwtTokenResponse
	status, err := p.postJSON(ctx, p.authURL+"/api/jwt/authenticate", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		p.logger.Error("jwt login request failed: %v", err)
		return ErrBadCredentials
	}
	if status != http.StatusOK || res.Token == "" {
		return ErrBadCredentials
	}

	p.storeToken(res.Token)
	p.readClaims(res.Token)
	return nil
}

func (p *JWTAuthProvider) VerifyLogIn(ctx context.Context) error {
	token := p.Token()
	if token == "" {
		return ErrNoToken
	}

	status, err := p.postJSON(ctx, p.authURL+"/api/jwt/checkToken", map[string]string{
		"token": token,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return enrich(ErrTokenRejected, map[string]any{"status": status})
	}

	p.readClaims(token)
	return nil
}

func (p *JWTAuthProvider) Refresh(ctx context.Context) error {
	token := p.Token()
	if token == "" {
		return ErrNoToken
	}

	var res jwtTokenResponse
	status, err := p.postJSON(ctx, p.authURL+"/api/jwt/refresh", map[string]string{
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

func (p *JWTAuthProvider) IsAdmin() bool {
	claims := p.claims(p.Token())
	if claims == nil {
		return false
	}
	admin, _ := claims["userIsAdmin"].(bool)
	return admin
}

// readClaims caches the profile attributes embedded in the token.
func (p *JWTAuthProvider) readClaims(token string) {
	claims := p.claims(token)
	if claims == nil {
		return
	}
	username, _ := claims["username"].(string)
	avatar, _ := claims["avatar"].(string)
	p.user = &UserInfo{Username: username, Avatar: avatar}
}

func (p *JWTAuthProvider) claims(token string) jwt.MapClaims {
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		p.logger.Debug("failed to parse token claims: %v", err)
		return nil
	}
	return claims
}
