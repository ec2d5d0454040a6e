package authkeep

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/authkeep/authkeep/internal"
	"github.com/authkeep/authkeep/jwt"
	"github.com/authkeep/authkeep/password"
	"github.com/authkeep/authkeep/session"
)

// Engine is the credential and session lifecycle core. Construct it through
// [Builder.Build]; after that all methods are safe for concurrent use.
type Engine struct {
	config       Config
	sessionStore *session.Store
	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	audit        *auditDispatcher
	metrics      *Metrics
	userProvider UserProvider
}

// Close stops background workers (the audit dispatcher) after draining.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL reports the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// RefreshTTL reports the configured refresh token lifetime.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.userProvider != nil && e.passwordHash != nil &&
		e.jwtManager != nil && e.sessionStore != nil
}

// Login verifies an email/password pair and opens a new session.
//
// Unknown email and wrong password both return [ErrInvalidCredentials]; the
// two cases are indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, email, pass string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(pass) == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrFieldRequired, func() map[string]string {
			return map[string]string{
				"reason": "missing_fields",
			}
		})
		return nil, ErrFieldRequired
	}

	user, err := e.userProvider.GetUserByEmail(email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "unknown_email",
			}
		})
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := e.openSession(ctx, user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, nil, nil)

	return &AuthResult{
		Identity: identityFromRecord(user),
		Tokens:   pair,
	}, nil
}

// Refresh rotates a refresh token: the presented token is retired and a new
// access/refresh pair is issued in one atomic step. A structurally valid
// token whose session entry is gone — rotated, logged out, or evicted —
// yields [ErrSessionNotFound]; that is the reuse-detection signal.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "empty_token",
			}
		})
		return nil, ErrRefreshInvalid
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return nil, ErrRefreshInvalid
	}

	user, err := e.userProvider.GetUserByID(claims.UID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UID, ErrUserNotFound, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return nil, ErrUserNotFound
	}

	pair, err := e.mintPair(user)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.UserID, err, func() map[string]string {
			return map[string]string{
				"reason": "mint_failed",
			}
		})
		return nil, err
	}

	err = e.sessionStore.Rotate(
		ctx,
		user.UserID,
		internal.HashToken(refreshToken),
		e.newEntry(ctx, pair.RefreshToken),
	)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrEntryNotFound):
			e.metricInc(MetricRefreshReuseDetected)
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, user.UserID, ErrSessionNotFound, nil)
			return nil, ErrSessionNotFound
		default:
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, user.UserID, ErrStoreUnavailable, func() map[string]string {
				return map[string]string{
					"reason": "rotate_failed",
				}
			})
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.UserID, nil, nil)

	return &pair, nil
}

// Authenticate verifies an access token and resolves the user it names. The
// user must still exist in the provider; a malformed token, an expired token,
// and a deleted user all return [ErrUnauthorized]. No session store lookup is
// performed: an access token stays valid until its own expiry even after the
// session that issued it is logged out.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	user, err := e.userProvider.GetUserByID(claims.UID)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthorized
	}

	e.metricInc(MetricAuthenticateSuccess)
	identity := identityFromRecord(user)
	return &identity, nil
}

// Logout retires the session entry bound to refreshToken. The operation is
// idempotent: logging out an already-retired or unknown token succeeds.
func (e *Engine) Logout(ctx context.Context, userID, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if userID == "" || refreshToken == "" {
		return ErrFieldRequired
	}

	existed, err := e.sessionStore.Remove(ctx, userID, internal.HashToken(refreshToken))
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, userID, nil, func() map[string]string {
		return map[string]string{
			"existed": strconv.FormatBool(existed),
		}
	})

	return nil
}

// LogoutAll retires every session for the user.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrFieldRequired
	}

	if err := e.sessionStore.Clear(ctx, userID); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, nil, nil)

	return nil
}

// ActiveSessions lists the user's live sessions oldest first. The projection
// carries device info and timestamps only; token material never leaves the
// store.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrFieldRequired
	}

	entries, err := e.sessionStore.List(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	infos := make([]SessionInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, SessionInfo{
			DeviceInfo: entry.DeviceInfo,
			CreatedAt:  time.Unix(entry.CreatedAt, 0).UTC(),
			LastUsedAt: time.Unix(entry.LastUsedAt, 0).UTC(),
		})
	}

	return infos, nil
}

// openSession mints a token pair and appends the session entry, reporting
// cap evictions through metrics and audit.
func (e *Engine) openSession(ctx context.Context, user UserRecord) (TokenPair, error) {
	pair, err := e.mintPair(user)
	if err != nil {
		return TokenPair{}, err
	}

	evicted, err := e.sessionStore.Append(ctx, user.UserID, e.newEntry(ctx, pair.RefreshToken))
	if err != nil {
		return TokenPair{}, errors.Join(ErrSessionCreationFailed, err)
	}
	e.metricInc(MetricSessionCreated)
	if evicted > 0 {
		e.metrics.Add(MetricSessionEvicted, uint64(evicted))
		e.emitAudit(ctx, auditEventSessionEvicted, true, user.UserID, nil, func() map[string]string {
			return map[string]string{
				"count": strconv.Itoa(evicted),
			}
		})
	}

	return pair, nil
}

func (e *Engine) mintPair(user UserRecord) (TokenPair, error) {
	access, err := e.jwtManager.CreateAccess(user.UserID, user.FirstName, user.LastName, user.Email)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := e.jwtManager.CreateRefresh(user.UserID)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) newEntry(ctx context.Context, refreshToken string) session.Entry {
	deviceInfo := deviceInfoFromContext(ctx)
	if deviceInfo == "" {
		deviceInfo = e.config.Session.DefaultDeviceInfo
	}

	now := time.Now().Unix()
	return session.Entry{
		TokenHash:  internal.HashToken(refreshToken),
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		LastUsedAt: now,
	}
}

func identityFromRecord(user UserRecord) Identity {
	return Identity{
		ID:        user.UserID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
}
