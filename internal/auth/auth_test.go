package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"klv-monitor/internal/config"
	"klv-monitor/internal/domain"
)

type memoryUserRepo struct {
	users map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) CreateUser(ctx context.Context, user *domain.User) error {
	if _, ok := r.users[user.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}
	user.ID = int64(len(r.users) + 1)
	r.users[user.Email] = user
	return nil
}

func (r *memoryUserRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BootstrapEmail:    "admin@example.com",
		BootstrapPassword: "changeme123",
	}
}

func seedUser(t *testing.T, repo *memoryUserRepo, email, password string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := repo.CreateUser(context.Background(), &domain.User{
		Email:    email,
		Password: string(hashed),
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	repo := newMemoryUserRepo()
	seedUser(t, repo, "admin@example.com", "changeme123")
	svc := NewService(repo, testConfig())

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "admin@example.com",
		Password: "changeme123",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("empty access token")
	}
	if resp.User.Email != "admin@example.com" {
		t.Errorf("wrong user in response: %+v", resp.User)
	}

	if err := svc.VerifyToken(resp.AccessToken); err != nil {
		t.Errorf("VerifyToken rejected a fresh token: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	seedUser(t, repo, "admin@example.com", "changeme123")
	svc := NewService(repo, testConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), testConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "changeme123",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyTokenRejectsForgery(t *testing.T) {
	repo := newMemoryUserRepo()
	seedUser(t, repo, "admin@example.com", "changeme123")
	svc := NewService(repo, testConfig())

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "admin@example.com",
		Password: "changeme123",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	otherCfg := testConfig()
	otherCfg.JWTSecret = "a-different-secret"
	other := NewService(repo, otherCfg)
	if err := other.VerifyToken(resp.AccessToken); err == nil {
		t.Error("token signed with another secret was accepted")
	}

	if err := svc.VerifyToken(""); err == nil {
		t.Error("empty token was accepted")
	}
	if err := svc.VerifyToken("not.a.jwt"); err == nil {
		t.Error("garbage token was accepted")
	}
}

func TestBootstrapCreatesFirstUser(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, testConfig())

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	u, err := repo.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("bootstrap user missing: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("changeme123")); err != nil {
		t.Error("bootstrap password not stored as a matching bcrypt hash")
	}
}

func TestBootstrapSkipsWhenUsersExist(t *testing.T) {
	repo := newMemoryUserRepo()
	seedUser(t, repo, "existing@example.com", "hunter2hunter2")
	svc := NewService(repo, testConfig())

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if n, _ := repo.CountUsers(context.Background()); n != 1 {
		t.Errorf("bootstrap should be a no-op, have %d users", n)
	}
}

func TestBootstrapRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.BootstrapEmail = ""
	cfg.BootstrapPassword = ""
	svc := NewService(newMemoryUserRepo(), cfg)

	if err := svc.Bootstrap(context.Background()); err == nil {
		t.Error("expected an error when no users exist and no credentials are configured")
	}
}
