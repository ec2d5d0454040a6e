package authkeep

import (
	"bytes"
	"errors"
	"time"
)

// Config is the full engine configuration. Zero values are not usable; start
// from [DefaultConfig] and override what you need.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token minting and verification. Access and refresh
// tokens are signed with independent HS256 secrets so that one class of token
// can never be presented as the other.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis-backed per-user session list.
//
// MaxPerUser bounds concurrent sessions per user; when a login or refresh
// would exceed it, the oldest entry is evicted. DefaultDeviceInfo labels
// sessions created without device context.
type SessionConfig struct {
	RedisPrefix       string
	MaxPerUser        int
	DefaultDeviceInfo string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries Argon2id parameters. Memory is in KB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the lock-free counter set.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the recommended baseline configuration. JWT secrets
// are intentionally absent and must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     0,
		},
		Session: SessionConfig{
			RedisPrefix:       "ak",
			MaxPerUser:        5,
			DefaultDeviceInfo: "Unknown device",
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks structural configuration errors that Build must reject.
func (c *Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT access secret required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT refresh secret required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("JWT access and refresh secrets must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT TTLs must be positive")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("invalid leeway configuration")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Session.MaxPerUser < 1 {
		return errors.New("session MaxPerUser must be >= 1")
	}
	if c.Session.DefaultDeviceInfo == "" {
		return errors.New("session DefaultDeviceInfo required")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
