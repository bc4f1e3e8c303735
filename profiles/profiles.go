package profiles

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store lookups that match no profile.
var ErrNotFound = errors.New("profile not found")

// Profile is the public-facing record created alongside an Account. It shares
// the account's ID so the two stores stay joined without a foreign key.
type Profile struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store is the profile-store boundary.
type Store interface {
	Create(ctx context.Context, profile Profile) (*Profile, error)
	FindByID(ctx context.Context, id string) (*Profile, error)
	DeleteByID(ctx context.Context, id string) error
}
