package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// sessionAlgorithm signs every session cookie.
const sessionAlgorithm = jwa.HS256

// sessionValidator checks the session tokens Service.Issue produces.
type sessionValidator struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	// MaxLifetime rejects tokens issued for longer than the current session
	// TTL, so shortening SESSION_TTL also retires older cookies.
	MaxLifetime time.Duration
}

// Subject verifies the signature and claims of token and returns the session
// id it carries.
func (v sessionValidator) Subject(token string, now time.Time) (string, error) {
	alg, err := signingAlgorithm(token)
	if err != nil {
		return "", err
	}
	if alg != sessionAlgorithm {
		return "", fmt.Errorf("auth: unexpected token algorithm %s", alg)
	}
	tok, err := jwt.ParseString(token, jwt.WithKey(sessionAlgorithm, v.Secret), jwt.WithValidate(false))
	if err != nil {
		return "", fmt.Errorf("auth: parse session: %w", err)
	}
	if err := v.validate(tok, now); err != nil {
		return "", err
	}
	return tok.Subject(), nil
}

func (v sessionValidator) validate(tok jwt.Token, now time.Time) error {
	if _, err := uuid.Parse(tok.Subject()); err != nil {
		return fmt.Errorf("auth: session subject: %w", err)
	}
	issued, expires := tok.IssuedAt(), tok.Expiration()
	if issued.IsZero() || expires.IsZero() {
		return errors.New("auth: session token must carry iat and exp")
	}
	// Claims have second precision.
	if v.MaxLifetime > 0 && expires.Sub(issued) > v.MaxLifetime+time.Second {
		return fmt.Errorf("auth: session lifetime %s exceeds %s", expires.Sub(issued), v.MaxLifetime)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

// signingAlgorithm reads the algorithm from the single protected header of a
// compact JWS, refusing unsigned tokens.
func signingAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", fmt.Errorf("auth: parse jws: %w", err)
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	switch alg := headers.Algorithm(); alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	default:
		return alg, nil
	}
}
