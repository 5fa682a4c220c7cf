package auth

import (
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"resumescore/internal/errors"
)

// Claims is the token payload.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenService creates a token service. The secret must be non-empty.
func NewTokenService(secret string, ttl time.Duration, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "JWT secret is required", nil)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: issuer}, nil
}

// RandomSecret returns a fresh 256-bit hex secret for deployments that configured none.
// Tokens signed with it do not survive a restart.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issue returns a signed token for the user and its expiry time.
func (s *TokenService) Issue(userID uuid.UUID, username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.NewInternalError(errors.ErrCodeInternal, "failed to sign token", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token and returns its claims.
func (s *TokenService) Validate(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "token is empty", nil)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case stderrors.Is(err, jwt.ErrTokenExpired):
			return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "token expired", err)
		case stderrors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "malformed token", err)
		case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "invalid token signature", err)
		default:
			return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "invalid token", err)
		}
	}
	if !parsed.Valid || claims.UserID == uuid.Nil {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "invalid token", nil)
	}
	return claims, nil
}
