package auth

import (
	"context"
	"strings"
	"time"

	"resumescore/internal/errors"
	"resumescore/internal/history"
)

// UserStore is the part of the history store accounts need.
type UserStore interface {
	CreateUser(ctx context.Context, u *history.User) error
	UserByUsername(ctx context.Context, username string) (*history.User, error)
}

// Session is what a successful login returns.
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *history.User `json:"user"`
}

// Service registers and logs in users.
type Service struct {
	users  UserStore
	hasher *Hasher
	tokens *TokenService
	logger *errors.Logger
}

// NewService wires the account service.
func NewService(users UserStore, hasher *Hasher, tokens *TokenService, logger *errors.Logger) *Service {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

// Tokens exposes the token service for request authentication.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Register creates an account. Duplicate usernames or emails yield a conflict error.
func (s *Service) Register(ctx context.Context, username, email, password string) (*history.User, error) {
	hash, err := s.hasher.Hash(password)
	if errors.IsType(err, errors.ErrorTypeValidation) {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to hash password", err)
	}

	u := &history.User{
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.HasCode(err, errors.ErrCodeConflict) {
			return nil, err
		}
		s.logger.LogError(err, "Failed to register user", "username", u.Username)
		return nil, err
	}

	s.logger.Info("User registered", "user_id", u.ID.String(), "username", u.Username)
	return u, nil
}

// Login checks credentials and issues a token. Unknown users and wrong passwords produce
// the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, invalidCredentials()
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

func invalidCredentials() error {
	return errors.NewAuthError(errors.ErrCodeUnauthorized, "invalid username or password", nil)
}
