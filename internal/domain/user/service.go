package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tasklane/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service handles registration, login and token authentication.
type Service struct {
	users  Repository
	tokens *Tokens
	cost   int
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(users Repository, tokens *Tokens, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// RegisterRequest describes a new account.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// LoginRequest describes a login attempt.
type LoginRequest struct {
	Email    string
	Password string
}

// Register creates a user and issues its first token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	displayName := strings.TrimSpace(req.DisplayName)
	switch {
	case !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	case len(req.Password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	case displayName == "":
		return nil, fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("user registered", "user_id", u.ID)
	}
	return s.issue(u)
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil && s.logger != nil {
		s.logger.Warn("recording login failed", "user_id", u.ID, "error", err)
	}
	u.LastLoginAt = &now
	return s.issue(u)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}

func (s *Service) issue(u *User) (*AuthResult, error) {
	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: expires}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
