package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	GoogleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleVerifier checks Google ID tokens: RS256 signature against Google's
// published keys, issuer, audience (the OAuth client id) and expiry.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier builds a verifier whose signing keys are fetched lazily
// from Google and cached. ctx bounds the background key fetches.
func NewGoogleVerifier(ctx context.Context, clientID string) *GoogleVerifier {
	keys := oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	return NewVerifierWithKeySet(GoogleIssuer, clientID, keys, nil)
}

// NewVerifierWithKeySet builds a verifier for any issuer and key set. A nil
// now uses time.Now.
func NewVerifierWithKeySet(issuer, clientID string, keys oidc.KeySet, now func() time.Time) *GoogleVerifier {
	cfg := &oidc.Config{
		ClientID:             clientID,
		SupportedSigningAlgs: []string{oidc.RS256},
		Now:                  now,
	}
	return &GoogleVerifier{verifier: oidc.NewVerifier(issuer, keys, cfg)}
}

type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*Claims, error) {
	rawIDToken = strings.TrimSpace(rawIDToken)
	if rawIDToken == "" {
		return nil, ErrEmptyToken
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if claims.Sub == "" || claims.Email == "" {
		return nil, ErrMissingClaims
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, ErrEmailUnverified
	}

	return &Claims{
		Subject:    claims.Sub,
		Email:      claims.Email,
		GivenName:  strings.TrimSpace(claims.GivenName),
		FamilyName: strings.TrimSpace(claims.FamilyName),
	}, nil
}
