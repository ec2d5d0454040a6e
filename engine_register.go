package authkeep

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Register creates a user and opens their first session. The email is
// normalized to lower case before storage and uniqueness checks; the password
// is Argon2id-hashed before it reaches the provider. On success the new
// identity and a token pair are returned; the password hash and session list
// are not.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	// The password is hashed exactly as provided, but a value that is blank
	// after trimming is still a missing field.
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || strings.TrimSpace(req.Password) == "" {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", ErrFieldRequired, func() map[string]string {
			return map[string]string{
				"reason": "missing_fields",
			}
		})
		return nil, ErrFieldRequired
	}

	passwordHash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"reason": "hash_failed",
			}
		})
		return nil, err
	}

	created, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		UserID:       uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", ErrEmailExists, func() map[string]string {
				return map[string]string{
					"email": req.Email,
				}
			})
			return nil, ErrEmailExists
		}
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"reason": "provider_create_failed",
			}
		})
		return nil, err
	}

	pair, err := e.openSession(ctx, created)
	if err != nil {
		// Account exists; only the auto-login session failed.
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, created.UserID, err, func() map[string]string {
			return map[string]string{
				"reason": "auto_login_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.UserID, nil, nil)

	return &AuthResult{
		Identity: identityFromRecord(created),
		Tokens:   pair,
	}, nil
}
