package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"taskboard/internal/model"
	"taskboard/internal/util"
)

// UserStore is the persistence collaborator for user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type Clock interface {
	Now() time.Time
}

type Service struct {
	users     UserStore
	clock     Clock
	jwtSecret string
}

func NewService(users UserStore, clock Clock, jwtSecret string) *Service {
	return &Service{
		users:     users,
		clock:     clock,
		jwtSecret: jwtSecret,
	}
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.TrimSpace(name) == "" || password == "" {
		return nil, fmt.Errorf("%w: email, name and password are required", model.ErrValidation)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", model.ErrConflict)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Login checks user credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return "", nil, fmt.Errorf("%w: invalid email or password", model.ErrValidation)
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, fmt.Errorf("%w: invalid email or password", model.ErrValidation)
	}

	token, err := util.GenerateJWT(u.ID, u.Name, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}

// CurrentUser resolves the authenticated user's profile.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}
