package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters used for newly created gate password hashes.
const (
	gateHashMemory      = 64 * 1024
	gateHashIterations  = 3
	gateHashParallelism = 2
	gateHashSaltLength  = 16
	gateHashKeyLength   = 32
)

// HashGatePassword derives an argon2id hash in the standard
// $argon2id$v=19$m=...,t=...,p=...$salt$hash encoding, for storing in the
// gate_password config field.
func HashGatePassword(password string) (string, error) {
	salt := make([]byte, gateHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, gateHashIterations, gateHashMemory, gateHashParallelism, gateHashKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, gateHashMemory, gateHashIterations, gateHashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// verifyGatePassword checks a candidate against a stored hash. Secrets not
// in argon2id form are compared literally so development configs can carry a
// plain password.
func verifyGatePassword(secret, password string) error {
	if !strings.HasPrefix(secret, "$argon2id$") {
		if subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1 {
			return nil
		}
		return ErrInvalidPassword
	}

	parts := strings.Split(secret, "$")
	if len(parts) != 6 {
		return ErrInvalidPassword
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrInvalidPassword
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return ErrInvalidPassword
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidPassword
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrInvalidPassword
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(stored)))
	if subtle.ConstantTimeCompare(stored, computed) == 1 {
		return nil
	}
	return ErrInvalidPassword
}

// GateSession is an issued unlock token with its expiry.
type GateSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PasswordGate protects the settings surface with a single shared password.
// Unlocking issues an opaque, TTL-bound session token; sessions live only in
// memory.
type PasswordGate struct {
	secret   string
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]time.Time
}

// NewPasswordGate wires the gate. An empty secret disables it: every unlock
// fails with ErrGateDisabled. Nil generators fall back to UUID tokens and
// time.Now.
func NewPasswordGate(secret string, ttl time.Duration, now func() time.Time, newToken func() string, logger *slog.Logger) *PasswordGate {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	if newToken == nil {
		newToken = uuid.NewString
	}
	return &PasswordGate{
		secret:   secret,
		ttl:      ttl,
		now:      now,
		newToken: newToken,
		logger:   defaultLogger(logger),
		sessions: make(map[string]time.Time),
	}
}

// Enabled reports whether a gate password is configured.
func (g *PasswordGate) Enabled() bool {
	return g != nil && g.secret != ""
}

// Unlock verifies the password and issues a session.
func (g *PasswordGate) Unlock(password string) (GateSession, error) {
	if !g.Enabled() {
		return GateSession{}, ErrGateDisabled
	}
	if err := verifyGatePassword(g.secret, password); err != nil {
		g.logger.Warn("gate unlock rejected")
		return GateSession{}, err
	}

	session := GateSession{Token: g.newToken(), ExpiresAt: g.now().Add(g.ttl)}
	g.mu.Lock()
	g.pruneLocked()
	g.sessions[session.Token] = session.ExpiresAt
	g.mu.Unlock()
	return session, nil
}

// Verify checks that a token names a live session.
func (g *PasswordGate) Verify(token string) error {
	if !g.Enabled() {
		// nothing to protect
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.sessions[token]
	if !ok {
		return ErrSessionUnknown
	}
	if !g.now().Before(expiry) {
		delete(g.sessions, token)
		return ErrSessionExpired
	}
	return nil
}

// Lock revokes a session token.
func (g *PasswordGate) Lock(token string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	delete(g.sessions, token)
	g.mu.Unlock()
}

func (g *PasswordGate) pruneLocked() {
	now := g.now()
	for token, expiry := range g.sessions {
		if !now.Before(expiry) {
			delete(g.sessions, token)
		}
	}
}
