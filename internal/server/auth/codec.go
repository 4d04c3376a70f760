// Package auth issues and checks the secrets the auth service deals in:
// single-use email verification tokens, signed session tokens and bcrypt
// password hashes.
package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Codec carries the process-wide signing secret and token lifetimes. It is
// safe for concurrent use.
type Codec struct {
	secret          []byte
	sessionTTL      time.Duration
	verificationTTL time.Duration
	passwordCost    int
	now             func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithPasswordCost sets the bcrypt cost used by HashPassword.
func WithPasswordCost(cost int) Option {
	return func(c *Codec) { c.passwordCost = cost }
}

func NewCodec(secret []byte, sessionTTL, verificationTTL time.Duration, opts ...Option) *Codec {
	c := &Codec{
		secret:          secret,
		sessionTTL:      sessionTTL,
		verificationTTL: verificationTTL,
		passwordCost:    bcrypt.DefaultCost,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

// VerificationTTL is how long an issued verification token stays usable.
func (c *Codec) VerificationTTL() time.Duration {
	return c.verificationTTL
}
