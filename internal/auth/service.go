package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/errors"
)

const badCredentials = "Incorrect email or password"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Token is the body returned by register and login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterInput contains parameters for Register.
type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Name     *string `json:"name,omitempty"`
}

// LoginInput contains parameters for Login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Service handles account registration and login.
type Service struct {
	db     *sql.DB
	tokens *TokenManager
}

// NewService creates a Service.
func NewService(database *sql.DB, tokens *TokenManager) *Service {
	return &Service{db: database, tokens: tokens}
}

// Tokens returns the service's token manager.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Register creates a user and returns a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Token, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, errors.NewInvalidRequest(registerMessage(err))
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var name *string
	if in.Name != nil {
		if n := strings.TrimSpace(*in.Name); n != "" {
			name = &n
		}
	}

	user := &db.User{
		ID:           ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String(),
		Email:        in.Email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().Unix(),
	}
	if err := db.InsertUser(ctx, s.db, user); err != nil {
		return nil, err
	}
	return s.issue(user.ID)
}

// Login checks credentials and returns a token.
// Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Token, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, errors.NewUnauthorized(badCredentials)
	}

	user, err := db.GetUserByEmail(ctx, s.db, in.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewUnauthorized(badCredentials)
		}
		return nil, err
	}

	ok, err := VerifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !ok {
		return nil, errors.NewUnauthorized(badCredentials)
	}
	return s.issue(user.ID)
}

// Me returns the account behind a verified token subject.
func (s *Service) Me(ctx context.Context, userID string) (*db.User, error) {
	user, err := db.GetUserByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewUnauthorized("User not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) issue(userID string) (*Token, error) {
	signed, _, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &Token{AccessToken: signed, TokenType: "bearer"}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func registerMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid registration"
	}
	switch fe := verrs[0]; fe.Field() {
	case "Email":
		if fe.Tag() == "required" {
			return "email is required"
		}
		return "email is not a valid address"
	case "Password":
		if fe.Tag() == "required" {
			return "password is required"
		}
		return "password must be between 8 and 128 characters"
	}
	return "invalid registration"
}
