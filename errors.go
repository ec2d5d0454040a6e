package authkeep

import "errors"

var (
	// ErrUnauthorized is returned when an access token fails verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password. Callers must not split the two cases apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrFieldRequired is returned when a required request field is blank.
	ErrFieldRequired = errors.New("all fields are required")
	// ErrEmailExists is returned when registration collides with an existing email.
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound is returned when a token references a user that no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when a refresh token is structurally valid
	// but has no live session entry: already rotated, logged out, or evicted.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshInvalid is returned when a refresh token is missing, malformed,
	// expired, or carries a bad signature.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrStoreUnavailable is returned when the session store backend cannot be reached.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionCreationFailed is returned when tokens were minted but the
	// session entry could not be persisted.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrEngineNotReady is returned when an Engine is used before Build wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrProviderDuplicateEmail must be returned by UserProvider.CreateUser on
	// an email uniqueness violation.
	ErrProviderDuplicateEmail = errors.New("provider duplicate email")
	// ErrProviderUserNotFound should be returned by UserProvider lookups when
	// no user matches.
	ErrProviderUserNotFound = errors.New("provider user not found")
)
