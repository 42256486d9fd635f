package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-struk/internal/common"
	"github.com/noah-isme/backend-struk/internal/obs"
)

const (
	defaultSessionTTL = 12 * time.Hour
	defaultIssuer     = "backend-struk"
	defaultAudience   = "struk-web"
)

// Service verifies the shared access password and issues signed session tokens.
type Service struct {
	password  []byte
	hash      string
	secret    []byte
	ttl       time.Duration
	issuer    string
	audience  string
	clockSkew time.Duration
	limiter   *limiter.Limiter
	now       func() time.Time
	validator sessionValidator
}

// Config configures the password gate.
type Config struct {
	// Password is compared in constant time. Ignored when PasswordHash is set.
	Password string
	// PasswordHash is an argon2id encoded hash.
	PasswordHash string
	Secret       string
	SessionTTL   time.Duration
	Issuer       string
	Audience     string
	ClockSkew    time.Duration
	// Limiter throttles login attempts per client IP. Optional.
	Limiter *limiter.Limiter
	Now     func() time.Time
}

// Session is a freshly issued session token.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	password := cfg.Password
	hash := strings.TrimSpace(cfg.PasswordHash)
	if password == "" && hash == "" {
		return nil, errors.New("auth: password or password hash is required")
	}
	if hash != "" {
		if _, _, _, err := argon2id.DecodeHash(hash); err != nil {
			return nil, fmt.Errorf("auth: decode password hash: %w", err)
		}
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = defaultAudience
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		password:  []byte(password),
		hash:      hash,
		secret:    []byte(secret),
		ttl:       ttl,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		limiter:   cfg.Limiter,
		now:       now,
		validator: sessionValidator{
			Secret:      []byte(secret),
			Issuer:      issuer,
			Audience:    audience,
			ClockSkew:   clockSkew,
			MaxLifetime: ttl,
		},
	}, nil
}

// TTL reports how long issued sessions stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login checks the password for the given client and issues a session on success.
func (s *Service) Login(ctx context.Context, password, clientIP string) (Session, error) {
	if err := s.throttle(ctx, clientIP); err != nil {
		return Session{}, err
	}
	ok, err := s.verifyPassword(password)
	if err != nil {
		recordLogin("error")
		return Session{}, common.NewAppError("INTERNAL", "unable to verify password", http.StatusInternalServerError, err)
	}
	if !ok {
		recordLogin("invalid")
		return Session{}, common.NewAppError("INVALID_PASSWORD", "incorrect password", http.StatusUnauthorized, nil)
	}
	session, err := s.Issue()
	if err != nil {
		recordLogin("error")
		return Session{}, common.NewAppError("INTERNAL", "unable to issue session", http.StatusInternalServerError, err)
	}
	recordLogin("success")
	return session, nil
}

func (s *Service) throttle(ctx context.Context, clientIP string) error {
	if s.limiter == nil {
		return nil
	}
	key := strings.TrimSpace(clientIP)
	if key == "" {
		key = "unknown"
	}
	lctx, err := s.limiter.Get(ctx, key)
	if err != nil {
		// A broken store must not lock everyone out.
		return nil
	}
	if lctx.Reached {
		recordLogin("throttled")
		retryAfter := lctx.Reset - s.now().Unix()
		if retryAfter < 1 {
			retryAfter = 1
		}
		return common.NewAppError("TOO_MANY_ATTEMPTS", "too many login attempts", http.StatusTooManyRequests, nil).
			WithDetails(map[string]any{"retry_after": retryAfter})
	}
	return nil
}

func (s *Service) verifyPassword(password string) (bool, error) {
	if s.hash != "" {
		return argon2id.ComparePasswordAndHash(password, s.hash)
	}
	return subtle.ConstantTimeCompare([]byte(password), s.password) == 1, nil
}

// Issue signs a new session token.
func (s *Service) Issue() (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	id := uuid.NewString()
	token, err := jwt.NewBuilder().
		Subject(id).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return Session{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(sessionAlgorithm, s.secret))
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, Token: string(signed), ExpiresAt: expiresAt}, nil
}

// Verify validates a session token and returns the session id it carries.
func (s *Service) Verify(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing session", http.StatusUnauthorized, nil)
	}
	id, err := s.validator.Subject(trimmed, s.now())
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid session", http.StatusUnauthorized, err)
	}
	return id, nil
}

func recordLogin(result string) {
	if obs.AuthLoginTotal != nil {
		obs.AuthLoginTotal.WithLabelValues(result).Inc()
	}
}
