package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/janndizz/test-plogg/internal/common"
)

// verificationTokenBytes is the entropy of a raw verification token.
const verificationTokenBytes = 32

// IssueVerificationToken returns a fresh raw token (64 hex chars), the hash to
// store in place of it, and the instant after which it no longer verifies.
func (c *Codec) IssueVerificationToken() (raw, hash string, expiry time.Time, err error) {
	raw, err = common.MakeRandHexString(verificationTokenBytes)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return raw, HashVerificationToken(raw), c.now().Add(c.verificationTTL), nil
}

// HashVerificationToken is the lowercase hex SHA-256 of raw.
func HashVerificationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
