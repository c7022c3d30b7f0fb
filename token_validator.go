package gateway

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenValidator validates externally issued tokens and extracts their
// claims without tying callers to a signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (jwt.MapClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (jwt.MapClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (jwt.MapClaims, error) {
	if f == nil {
		return nil, ErrTokenRejected
	}
	return f(tokenString)
}

// JWKSValidator validates tokens against a remote JWK Set, refreshing
// keys in the background. Used by redirect providers whose tokens are
// minted by a third party.
type JWKSValidator struct {
	jwks *keyfunc.JWKS
}

// NewJWKSValidator fetches the JWK Set from the given URL and keeps it
// refreshed hourly.
func NewJWKSValidator(jwksURL string) (*JWKSValidator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: time.Minute,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to fetch JWK set").
			WithMetadata(map[string]any{"url": jwksURL})
	}
	return &JWKSValidator{jwks: jwks}, nil
}

// Validate satisfies the TokenValidator interface.
func (v *JWKSValidator) Validate(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc)
	if err != nil {
		return nil, enrich(ErrTokenRejected, map[string]any{
			"cause": err.Error(),
		})
	}
	if !token.Valid {
		return nil, ErrTokenRejected
	}
	return claims, nil
}
