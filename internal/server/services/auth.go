// Package services contains server-side business logic. This file implements
// AuthService: local registration with email verification, password login,
// Google sign-in with account linking, and session-token profile lookups.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/logging"
	"github.com/janndizz/test-plogg/internal/server/auth"
	"github.com/janndizz/test-plogg/internal/server/identity"
	"github.com/janndizz/test-plogg/internal/server/models"
	"github.com/janndizz/test-plogg/internal/server/notify"
	"github.com/janndizz/test-plogg/internal/server/repositories/repomanager"
	"github.com/janndizz/test-plogg/internal/server/repositories/users"
)

const (
	minPasswordLength = 6

	defaultLastName      = "User"
	fallbackGoogleLast   = "Google User"
	verifyEmailRoutePath = "/api/users/verify-email/"
)

// Dispatcher hands a verification email off to a background sender.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notify.Message)
}

// RegisterInput is the payload of a local sign-up.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type RegisterResult struct {
	Message              string
	RequiresVerification bool
	Email                string
}

type VerifyResult struct {
	Message string
	Email   string
}

// LoginResult carries a fresh session token and the public view of the account.
type LoginResult struct {
	Token string
	User  models.PublicUser
}

type ResendResult struct {
	Message string
}

// Dependencies are the collaborators of AuthService. Tracer may be nil.
type Dependencies struct {
	DB            *sql.DB
	Repos         repomanager.RepositoryManager
	Codec         *auth.Codec
	Verifier      identity.Verifier
	Notifications Dispatcher
	Logger        logging.Logger
	Tracer        trace.Tracer
	// PublicBaseURL prefixes the verification link sent by email.
	PublicBaseURL string
}

// AuthService implements the account operations exposed over HTTP.
type AuthService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	codec         *auth.Codec
	verifier      identity.Verifier
	notifications Dispatcher
	logger        logging.Logger
	tracer        trace.Tracer
	linkBase      string
}

func NewAuthService(d Dependencies) *AuthService {
	tracer := d.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	verifier := d.Verifier
	if verifier == nil {
		verifier = identity.Disabled{}
	}
	return &AuthService{
		db:            d.DB,
		repomanager:   d.Repos,
		codec:         d.Codec,
		verifier:      verifier,
		notifications: d.Notifications,
		logger:        d.Logger,
		tracer:        tracer,
		linkBase:      strings.TrimRight(d.PublicBaseURL, "/") + verifyEmailRoutePath,
	}
}

func (s *AuthService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

// Register creates an unverified local account and emails a verification
// link. It never returns a session token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := strings.TrimSpace(in.Email)
	password := in.Password

	if firstName == "" || lastName == "" || email == "" || strings.TrimSpace(password) == "" {
		return nil, common.Validation("all fields are required")
	}
	if len(password) < minPasswordLength {
		return nil, common.Validation("password must be at least 6 characters")
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, common.Validation("password must be at most 72 bytes")
	}

	repo := s.users()

	_, err = repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, "register: lookup email", err)
	}

	hash, err := s.codec.HashPassword(password)
	if err != nil {
		return nil, s.internal(ctx, "register: hash password", err)
	}
	raw, tokenHash, expiry, err := s.codec.IssueVerificationToken()
	if err != nil {
		return nil, s.internal(ctx, "register: issue verification token", err)
	}

	now := s.codec.Now().UTC()
	user := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: &hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.SetVerification(tokenHash, expiry)

	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, s.internal(ctx, "register: create user", err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	s.sendVerification(ctx, user, raw)
	s.logger.Info(ctx, "user registered", "event", "user.registered", "user_id", user.ID)

	return &RegisterResult{
		Message:              "Registration successful! Please check your email to verify your account before signing in.",
		RequiresVerification: true,
		Email:                user.Email,
	}, nil
}

// VerifyEmail consumes a raw verification token. Wrong, expired and already
// used tokens are indistinguishable to the caller.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (res *VerifyResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyEmail")
	defer func() { endSpan(span, err) }()

	if rawToken == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}

	user, err := s.users().ConsumeVerification(ctx, auth.HashVerificationToken(rawToken), s.codec.Now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredToken
		}
		return nil, s.internal(ctx, "verify email: consume token", err)
	}

	s.logger.Info(ctx, "email verified", "event", "user.verified", "user_id", user.ID)

	return &VerifyResult{
		Message: "Email verified successfully. You can now sign in.",
		Email:   user.Email,
	}, nil
}

// Login checks a local password. The password is checked before the
// verification state, so an unverified account is only revealed to someone
// who knows its password.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.Validation("email and password are required")
	}

	user, err := s.users().FindByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "login: lookup email", err)
	}
	if !user.HasPassword() {
		return nil, common.ErrOAuthOnlyAccount
	}
	if !auth.ComparePassword(*user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, common.ErrEmailNotVerified
	}

	res, err = s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user logged in", "event", "user.login", "user_id", user.ID, "method", "password")
	return res, nil
}

// ResendVerification replaces the pending token of an unverified account and
// emails the new link. The previous link stops working.
func (s *AuthService) ResendVerification(ctx context.Context, email string) (res *ResendResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ResendVerification")
	defer func() { endSpan(span, err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, common.Validation("email is required")
	}

	repo := s.users()

	// one retry: a concurrent resend or verification may bump the version
	for attempt := 0; ; attempt++ {
		user, err := repo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrUserNotFound
			}
			return nil, s.internal(ctx, "resend: lookup email", err)
		}
		if user.EmailVerified {
			return nil, common.ErrAlreadyVerified
		}

		raw, tokenHash, expiry, err := s.codec.IssueVerificationToken()
		if err != nil {
			return nil, s.internal(ctx, "resend: issue verification token", err)
		}
		user.SetVerification(tokenHash, expiry)
		user.UpdatedAt = s.codec.Now().UTC()

		saved, err := repo.Save(ctx, user)
		if errors.Is(err, common.ErrVersionConflict) && attempt == 0 {
			s.logger.Debug(ctx, "resend: version conflict, retrying", "user_id", user.ID)
			continue
		}
		if err != nil {
			return nil, s.internal(ctx, "resend: save token", err)
		}

		s.sendVerification(ctx, saved, raw)
		s.logger.Info(ctx, "verification resent", "event", "user.verification_resent", "user_id", saved.ID)
		return &ResendResult{Message: "Verification email sent"}, nil
	}
}

// OAuthLogin signs in with a Google ID token, creating or linking the account
// as needed. Repeated or concurrent sign-ins for one Google subject resolve to
// a single account.
func (s *AuthService) OAuthLogin(ctx context.Context, providerToken string) (res *LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.OAuthLogin")
	defer func() { endSpan(span, err) }()

	if providerToken == "" {
		return nil, common.Validation("google token is required")
	}

	claims, err := s.verifier.Verify(ctx, providerToken)
	if err != nil {
		s.logger.Warn(ctx, "google token rejected", "error", err)
		return nil, common.ErrOAuthVerificationFailed
	}

	user, err := s.resolveGoogleUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	res, err = s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user logged in", "event", "user.login", "user_id", user.ID, "method", "google")
	return res, nil
}

const maxResolveAttempts = 3

func (s *AuthService) resolveGoogleUser(ctx context.Context, claims *identity.Claims) (*models.User, error) {
	repo := s.users()
	firstName, lastName := googleNames(claims)

	for attempt := 1; ; attempt++ {
		user, err := repo.FindByEmailOrGoogleID(ctx, claims.Email, claims.Subject)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			now := s.codec.Now().UTC()
			subject := claims.Subject
			created, err := repo.Create(ctx, &models.User{
				FirstName:       firstName,
				LastName:        lastName,
				Email:           claims.Email,
				GoogleSubjectID: &subject,
				EmailVerified:   true,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			if errors.Is(err, common.ErrorAlreadyExists) && attempt < maxResolveAttempts {
				// lost a race with a concurrent first sign-in; use the winner's row
				continue
			}
			if err != nil {
				return nil, s.internal(ctx, "google: create user", err)
			}
			s.logger.Info(ctx, "user registered", "event", "user.registered", "user_id", created.ID, "method", "google")
			return created, nil

		case err != nil:
			return nil, s.internal(ctx, "google: lookup user", err)

		case user.HasGoogleSubject():
			return user, nil
		}

		subject := claims.Subject
		user.GoogleSubjectID = &subject
		user.EmailVerified = true
		user.ClearVerification()
		user.UpdatedAt = s.codec.Now().UTC()

		linked, err := repo.Save(ctx, user)
		if (errors.Is(err, common.ErrVersionConflict) || errors.Is(err, common.ErrorAlreadyExists)) && attempt < maxResolveAttempts {
			continue
		}
		if err != nil {
			return nil, s.internal(ctx, "google: link account", err)
		}
		s.logger.Info(ctx, "google account linked", "event", "user.linked", "user_id", linked.ID)
		return linked, nil
	}
}

// googleNames derives first and last name from the identity claims.
func googleNames(c *identity.Claims) (first, last string) {
	first, last = c.GivenName, c.FamilyName

	if c.FamilyName == "" && c.GivenName != "" {
		parts := strings.Split(c.GivenName, " ")
		first = parts[0]
		last = strings.Join(parts[1:], " ")
		if last == "" {
			last = defaultLastName
		}
	}

	if first == "" && last == "" {
		first, _, _ = strings.Cut(c.Email, "@")
		last = fallbackGoogleLast
	}
	return first, last
}

// GetProfile resolves a session token to the account it was issued for.
func (s *AuthService) GetProfile(ctx context.Context, sessionToken string) (res *models.Profile, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.GetProfile")
	defer func() { endSpan(span, err) }()

	if sessionToken == "" {
		return nil, common.ErrMissingToken
	}

	userID, err := s.codec.ValidateSessionToken(sessionToken)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	user, err := s.users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, s.internal(ctx, "profile: lookup user", err)
	}

	p := user.Profile()
	return &p, nil
}

// --- helpers below ---

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	token, err := s.codec.IssueSessionToken(user.ID)
	if err != nil {
		return nil, s.internal(ctx, "issue session token", err)
	}
	return &LoginResult{Token: token, User: user.Public()}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User, rawToken string) {
	if s.notifications == nil {
		return
	}
	s.notifications.Dispatch(ctx, notify.Message{
		To:       user.Email,
		FullName: user.FullName(),
		Link:     s.linkBase + rawToken,
		Validity: s.codec.VerificationTTL(),
	})
}

// internal logs err and hides it behind ErrInternal.
func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op, "error", err)
	return fmt.Errorf("%s: %w", op, common.ErrInternal)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("error.kind", string(common.AsError(err).Kind)))
		if common.AsError(err).Kind == common.KindInternal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
