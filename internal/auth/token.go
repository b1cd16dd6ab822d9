package auth

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hpungsan/taskflow/internal/errors"
)

const issuer = "taskflow"

// TokenManager issues and verifies HS256 access tokens whose subject is a user ID.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. The secret must not be empty.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret not configured (set SECRET_KEY)")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID and returns it with its expiry.
func (m *TokenManager) Issue(userID string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns its subject.
// Every failure is UNAUTHORIZED.
func (m *TokenManager) Parse(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.NewUnauthorized("Token expired")
		}
		return "", errors.NewUnauthorized("Invalid authentication credentials")
	}
	if claims.Subject == "" {
		return "", errors.NewUnauthorized("User ID not found in token")
	}
	return claims.Subject, nil
}
