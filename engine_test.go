package authkeep

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockUserProvider struct {
	users   map[string]UserRecord
	byEmail map[string]string

	createErr  error
	getByIDErr error

	mu sync.Mutex

	getByEmailCalls int
	getByIDCalls    int
	createCalls     int
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:   map[string]UserRecord{},
		byEmail: map[string]string{},
	}
}

func (m *mockUserProvider) GetUserByEmail(email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByEmailCalls++

	userID, ok := m.byEmail[email]
	if !ok {
		return UserRecord{}, ErrProviderUserNotFound
	}
	return m.users[userID], nil
}

func (m *mockUserProvider) GetUserByID(userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls++

	if m.getByIDErr != nil {
		return UserRecord{}, m.getByIDErr
	}

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrProviderUserNotFound
	}
	return user, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}

	if _, exists := m.byEmail[input.Email]; exists {
		return UserRecord{}, ErrProviderDuplicateEmail
	}

	user := UserRecord{
		UserID:       input.UserID,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
	}
	m.users[user.UserID] = user
	m.byEmail[user.Email] = user.UserID
	return user, nil
}

// delete removes the user directly, simulating provider-side deletion.
func (m *mockUserProvider) delete(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return
	}
	delete(m.users, userID)
	delete(m.byEmail, user.Email)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret")
	cfg.JWT.Issuer = "authkeep-test"
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, up UserProvider) (*Engine, *redis.Client, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		mr.Close()
	}
}

// registerUser registers a fresh user and returns the auth result.
func registerUser(t *testing.T, engine *Engine, email, pass string) *AuthResult {
	t.Helper()

	res, err := engine.Register(context.Background(), RegisterRequest{
		FirstName: "Alice",
		LastName:  "Doe",
		Email:     email,
		Password:  pass,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return res
}

func TestBuildRejectsMissingRedis(t *testing.T) {
	_, err := New().
		WithConfig(testConfig()).
		WithUserProvider(newMockUserProvider()).
		Build()
	if err == nil {
		t.Fatal("expected build error without redis")
	}
}

func TestBuildRejectsMissingProvider(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	_, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		Build()
	if err == nil {
		t.Fatal("expected build error without user provider")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestAuthenticateReturnsIdentityFromToken(t *testing.T) {
	engine, _, done := newTestEngine(t, testConfig(), newMockUserProvider())
	defer done()

	res := registerUser(t, engine, "alice@example.com", "correct-horse")

	identity, err := engine.Authenticate(context.Background(), res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if identity.ID != res.Identity.ID {
		t.Fatalf("identity mismatch: got %q want %q", identity.ID, res.Identity.ID)
	}
	if identity.Email != "alice@example.com" {
		t.Fatalf("unexpected email %q", identity.Email)
	}
	if identity.FirstName != "Alice" || identity.LastName != "Doe" {
		t.Fatalf("unexpected name %q %q", identity.FirstName, identity.LastName)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	engine, _, done := newTestEngine(t, testConfig(), newMockUserProvider())
	defer done()

	if _, err := engine.Authenticate(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	engine, _, done := newTestEngine(t, testConfig(), newMockUserProvider())
	defer done()

	res := registerUser(t, engine, "alice@example.com", "correct-horse")

	if _, err := engine.Authenticate(context.Background(), res.Tokens.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for refresh token on access path, got %v", err)
	}
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	up := newMockUserProvider()
	engine, _, done := newTestEngine(t, testConfig(), up)
	defer done()

	res := registerUser(t, engine, "alice@example.com", "correct-horse")
	up.delete(res.Identity.ID)

	// The token is still within its lifetime, but the account is gone.
	if _, err := engine.Authenticate(context.Background(), res.Tokens.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for deleted user, got %v", err)
	}
}

func TestAuthenticateSurvivesLogout(t *testing.T) {
	engine, _, done := newTestEngine(t, testConfig(), newMockUserProvider())
	defer done()

	res := registerUser(t, engine, "alice@example.com", "correct-horse")

	if err := engine.Logout(context.Background(), res.Identity.ID, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// Access tokens are self-contained; logout revokes refresh capability only.
	if _, err := engine.Authenticate(context.Background(), res.Tokens.AccessToken); err != nil {
		t.Fatalf("expected access token to stay valid after logout, got %v", err)
	}
	if _, err := engine.Refresh(context.Background(), res.Tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}
