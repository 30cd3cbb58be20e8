// Package session issues short-lived tokens once the access password checks
// out, so handlers never see the password again.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidPassword = errors.New("session: invalid password")
	ErrInvalidToken    = errors.New("session: invalid token")
)

const issuerName = "amazon-final"

// Session is the verified content of a token.
type Session struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type claims struct {
	jwt.RegisteredClaims
}

// Issuer checks the password and signs HS256 tokens.
type Issuer struct {
	password []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewIssuer(password, secret string, ttl time.Duration) (*Issuer, error) {
	if password == "" || secret == "" {
		return nil, errors.New("session: password and secret are required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{password: []byte(password), secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for a correct password.
func (i *Issuer) Issue(password string) (string, *Session, error) {
	if subtle.ConstantTimeCompare([]byte(password), i.password) != 1 {
		return "", nil, ErrInvalidPassword
	}
	now := i.now()
	sess := &Session{ID: uuid.NewString(), ExpiresAt: now.Add(i.ttl).Truncate(time.Second)}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        sess.ID,
		Issuer:    issuerName,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("session: sign token: %w", err)
	}
	return signed, sess, nil
}

// Verify parses token and checks signature, issuer and expiry.
func (i *Issuer) Verify(token string) (*Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid || c.ID == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Session{ID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}
