// Package auth provides password hashing, opaque bearer tokens, and role
// checks for the platform API. Tokens are stored only as SHA-256 hashes;
// possession of the database does not yield usable credentials.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long a login session stays valid.
const TokenTTL = 12 * time.Hour

// Platform roles. ADMIN implicitly satisfies every role check.
const (
	RoleAdmin            = "ADMIN"
	RoleExpert           = "EXPERT"
	RoleCalculator       = "CALCULATOR"
	RoleAuditor          = "AUDITOR"
	RoleVerifier         = "VERIFIER"
	RoleProjectDeveloper = "PROJECT_DEVELOPER"
)

// HashPassword bcrypt-hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewToken generates an opaque bearer token and the hash under which it is
// persisted. The plaintext token is returned to the client exactly once.
func NewToken() (token, tokenHash string) {
	token = uuid.NewString()
	return token, HashToken(token)
}

// HashToken returns the storage hash of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ExtractBearer pulls the bearer token out of an Authorization header.
func ExtractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("expected Bearer authorization")
	}
	return parts[1], nil
}

// HasAnyRole reports whether the user's roles satisfy the requirement.
// ADMIN always passes; an empty requirement only needs authentication.
func HasAnyRole(userRoles, required []string) bool {
	for _, r := range userRoles {
		if r == RoleAdmin {
			return true
		}
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range userRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}
