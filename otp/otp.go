// Package otp manages the short-lived one-time pins used for email
// verification and password reset. Pins live in an external key-value store
// under `{purpose}:{email}` with a fixed TTL; at most one challenge is live
// per purpose and address, and issuing a new one overwrites the old.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

// Pin parameters match what the platform has always mailed out.
const (
	pinAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	pinLength   = 8

	// TTL is how long a challenge stays valid.
	TTL = 10 * time.Minute
)

// Purpose distinguishes the two challenge kinds.
type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeVerify || p == PurposeReset
}

// ErrInvalid is returned when a challenge is absent, expired, or the pin does
// not match. Callers must not distinguish the cases.
var ErrInvalid = errors.New("invalid or expired pin")

// Key returns the store key for a challenge.
func Key(purpose Purpose, email string) string {
	return fmt.Sprintf("%s:%s", purpose, email)
}

// NewPin generates a random pin from the fixed alphabet. Bytes at or above
// the largest multiple of the alphabet size are rejected so every character
// is drawn uniformly.
func NewPin() (string, error) {
	const maxByte = 256 - 256%len(pinAlphabet)

	out := make([]byte, 0, pinLength)
	buf := make([]byte, pinLength)
	for len(out) < pinLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("otp.NewPin: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			out = append(out, pinAlphabet[int(b)%len(pinAlphabet)])
			if len(out) == pinLength {
				break
			}
		}
	}
	return string(out), nil
}

// Challenges issues and consumes pins against a Store.
type Challenges struct {
	store Store
}

func NewChallenges(store Store) *Challenges {
	return &Challenges{store: store}
}

// Issue creates a fresh pin for (purpose, email), replacing any prior
// challenge for the same pair.
func (c *Challenges) Issue(ctx context.Context, purpose Purpose, email string) (string, error) {
	pin, err := NewPin()
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, Key(purpose, email), pin, TTL); err != nil {
		return "", err
	}
	return pin, nil
}

// Consume validates pin against the live challenge and deletes it on match,
// making every challenge single-use. Absent, expired, and mismatched pins all
// collapse to ErrInvalid.
func (c *Challenges) Consume(ctx context.Context, purpose Purpose, email, pin string) error {
	stored, err := c.store.Get(ctx, Key(purpose, email))
	if errors.Is(err, ErrChallengeNotFound) {
		return ErrInvalid
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(pin)) != 1 {
		return ErrInvalid
	}
	return c.store.Delete(ctx, Key(purpose, email))
}
