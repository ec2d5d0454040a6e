package authkeep

import (
	"context"
	"time"
)

// Identity is the authenticated view of a user carried by access tokens and
// returned from Engine operations. It never contains credential material.
type Identity struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// TokenPair bundles one freshly minted access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by Login and Register: the resolved identity plus the
// token pair issued for the new session.
type AuthResult struct {
	Identity Identity
	Tokens   TokenPair
}

// SessionInfo is the projection of a live session exposed to callers.
// Token material is deliberately absent.
type SessionInfo struct {
	DeviceInfo string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// RegisterRequest carries the inputs for Engine.Register.
type RegisterRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserRecord is the provider-side representation of a stored user.
//
// PasswordHash is an opaque PHC string produced by the engine's hasher;
// providers persist and return it verbatim.
type UserRecord struct {
	UserID       string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// CreateUserInput is passed to UserProvider.CreateUser. UserID is minted by
// the engine; Email arrives normalized to lower case.
type CreateUserInput struct {
	UserID       string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// UserProvider is the credential storage boundary. Implementations are
// typically backed by the application's primary database.
//
// CreateUser must return [ErrProviderDuplicateEmail] (possibly wrapped) when
// the email is already taken. Lookups should return [ErrProviderUserNotFound]
// on a miss; any lookup error is treated as a miss by the engine.
type UserProvider interface {
	GetUserByEmail(email string) (UserRecord, error)
	GetUserByID(userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}
