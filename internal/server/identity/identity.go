// Package identity verifies tokens issued by the federated identity provider
// and extracts the claims the auth service needs.
package identity

import (
	"context"
	"errors"
)

// Claims is the validated identity asserted by the provider. GivenName and
// FamilyName may be empty.
type Claims struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// Verifier validates a provider-issued token.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

var (
	ErrEmptyToken       = errors.New("empty identity token")
	ErrMissingClaims    = errors.New("identity token lacks subject or email")
	ErrEmailUnverified  = errors.New("provider has not verified the email")
	ErrVerifierDisabled = errors.New("identity verification is not configured")
)

// Disabled rejects every token. It stands in when no client id is configured.
type Disabled struct{}

func (Disabled) Verify(context.Context, string) (*Claims, error) {
	return nil, ErrVerifierDisabled
}
