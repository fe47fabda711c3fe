// Package auth
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"klv-monitor/internal/config"
	"klv-monitor/internal/domain"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

type Service struct {
	repo domain.UserRepository
	cfg  *config.Config
}

func NewService(repo domain.UserRepository, cfg *config.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   time.Now().Add(s.cfg.JWTExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		User:        user,
		AccessToken: tokenString,
	}, nil
}

// VerifyToken checks an HS256 bearer token issued by Login.
func (s *Service) VerifyToken(tokenString string) error {
	if tokenString == "" {
		return errors.New("empty token")
	}

	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}

	return nil
}

// Bootstrap creates the configured admin user when the users table is
// empty. The monitor is a single-operator tool; there is no self-service
// registration.
func (s *Service) Bootstrap(ctx context.Context) error {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	if s.cfg.BootstrapEmail == "" || s.cfg.BootstrapPassword == "" {
		return errors.New("no users exist and no bootstrap credentials configured")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(s.cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.repo.CreateUser(ctx, &domain.User{
		Email:    s.cfg.BootstrapEmail,
		Password: string(hashed),
	})
}
