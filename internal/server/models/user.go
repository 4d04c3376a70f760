// Package models holds the account record and the projections of it that
// are safe to hand to callers.
package models

import "time"

// User is the stored account. PasswordHash is only populated by lookups that
// explicitly ask for it. VerificationTokenHash and VerificationExpiry are
// either both set or both nil.
type User struct {
	ID                    string
	FirstName             string
	LastName              string
	Email                 string
	PasswordHash          *string
	GoogleSubjectID       *string
	EmailVerified         bool
	VerificationTokenHash *string
	VerificationExpiry    *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Version               int64
}

// FullName is first and last name joined by a single space.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasPassword reports whether the account can sign in locally.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// HasGoogleSubject reports whether the account is linked to a Google identity.
func (u *User) HasGoogleSubject() bool {
	return u.GoogleSubjectID != nil && *u.GoogleSubjectID != ""
}

// SetVerification replaces the pending verification token.
func (u *User) SetVerification(hash string, expiry time.Time) {
	u.VerificationTokenHash = &hash
	u.VerificationExpiry = &expiry
}

// ClearVerification drops the pending verification token.
func (u *User) ClearVerification() {
	u.VerificationTokenHash = nil
	u.VerificationExpiry = nil
}

// PublicUser is the projection returned on login.
type PublicUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	EmailVerified bool   `json:"emailVerified"`
}

// Profile is PublicUser plus the creation time.
type Profile struct {
	PublicUser
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName(),
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
	}
}

func (u *User) Profile() Profile {
	return Profile{PublicUser: u.Public(), CreatedAt: u.CreatedAt}
}
