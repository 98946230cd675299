package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Identity is the subset of token claims the platform cares about
type Identity struct {
	Email string
	Name  string
}

// Resolver verifies externally issued bearer tokens against an OIDC issuer
type Resolver struct {
	verifier *oidc.IDTokenVerifier
}

// NewResolver discovers the OIDC issuer and builds a token verifier
func NewResolver(ctx context.Context, issuer, clientID string) (*Resolver, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	cfg := &oidc.Config{ClientID: clientID}
	if clientID == "" {
		cfg.SkipClientIDCheck = true
	}
	return &Resolver{verifier: provider.Verifier(cfg)}, nil
}

// NewResolverFromEnv builds a resolver from FTSS_OIDC_ISSUER and
// FTSS_OIDC_CLIENT_ID.
// Returns nil when no issuer is configured.
func NewResolverFromEnv() (*Resolver, error) {
	issuer := os.Getenv("FTSS_OIDC_ISSUER")
	if issuer == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return NewResolver(ctx, issuer, os.Getenv("FTSS_OIDC_CLIENT_ID"))
}

// Verify checks a bearer token against the issuer and extracts the identity
func (r *Resolver) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	if r == nil || r.verifier == nil {
		return nil, errors.New("token verification not configured")
	}
	idToken, err := r.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		claims.Email = claims.PreferredUsername
	}
	if claims.Email == "" {
		return nil, errors.New("token has no email claim")
	}
	return &Identity{Email: claims.Email, Name: claims.Name}, nil
}
