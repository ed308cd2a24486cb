package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flowmazon/storefront/internal/hash"
	"github.com/flowmazon/storefront/internal/models"
	"github.com/flowmazon/storefront/internal/repo"
)

var (
	ErrValidation         = errors.New("validation")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const AccessTokenTTL = 15 * time.Minute

type Service struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
}

func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("password is required: %w", ErrValidation)
	}

	existing, err := s.Repo.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	passwordHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         "user",
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login checks the credentials and issues an HS256 access token. The cart
// merge triggered by a successful sign-in happens at the HTTP layer, which
// owns the anonymous-cart cookie.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, time.Time, error) {
	if username == "" || password == "" {
		return nil, "", time.Time{}, fmt.Errorf("username and password are required: %w", ErrValidation)
	}

	user, err := s.Repo.UserByUsername(ctx, username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil || !hash.CheckPassword(user.PasswordHash, password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	exp := time.Now().Add(AccessTokenTTL)
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	return user, token, exp, nil
}
