package accounts

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store lookups that match no account.
var ErrNotFound = errors.New("account not found")

// CreateParams are the fields a caller supplies when creating an account.
// Role defaults to RoleUser when empty. ID and timestamps are assigned by
// the store.
type CreateParams struct {
	Username        string
	Email           string
	PasswordHash    string
	Role            Role
	IsEmailVerified bool
	IsAuthenticated bool
}

// Patch is an explicit field-level update. Nil pointers leave the field
// untouched; a pointer to the zero value clears it. Updates must be atomic at
// the store layer so concurrent logins race safely (last write wins).
type Patch struct {
	PasswordHash    *string
	RefreshToken    *string
	IsAuthenticated *bool
	IsEmailVerified *bool
}

// Store is the credential-store boundary. Lookups on user-supplied
// identifiers must be exact-match string comparisons; implementations must
// never interpret the identifier as a query expression.
type Store interface {
	// FindByIdentifier matches identifier against username or email.
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByRefreshToken(ctx context.Context, token string) (*Account, error)
	Create(ctx context.Context, params CreateParams) (*Account, error)
	// UpdateByID applies the patch and returns the fresh record.
	UpdateByID(ctx context.Context, id string, patch Patch) (*Account, error)
	DeleteByID(ctx context.Context, id string) error
}
