package accounts

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the cost the rest of the platform has always hashed with.
const bcryptCost = 10

// Role is the closed set of roles an account can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a member of the role enumeration.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is the credential record for one identity.
//
// Invariant: RefreshToken != "" exactly when IsAuthenticated is true. There is
// a single live refresh token per account; issuing a new one replaces the old
// and invalidates any prior session.
type Account struct {
	ID              string    `json:"id,omitempty"`
	Username        string    `json:"username,omitempty"` // unique
	Email           string    `json:"email,omitempty"`    // unique
	PasswordHash    string    `json:"-"`                  // empty for OAuth-only accounts until a reset
	Role            Role      `json:"role,omitempty"`
	RefreshToken    string    `json:"-"` // the single currently-valid refresh token
	IsAuthenticated bool      `json:"isAuthenticated"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// Sanitized returns a copy safe to attach to a request context or serialize:
// the password hash and refresh token are stripped.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	a.RefreshToken = ""
	return a
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password against a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
