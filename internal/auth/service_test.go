package auth

import (
	"context"
	"errors"
	"testing"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "storefront",
	ExpirationMinutes: 30,
}

func TestServiceLoginByUsernameOrMobile(t *testing.T) {
	password := "password123"
	user := &models.User{
		ID:           17,
		Username:     "shopper",
		Mobile:       "13800138000",
		PasswordHash: mustHashPassword(t, password),
	}
	svc := buildTestService(t, stubUserRepo{user: user})

	for _, login := range []string{"shopper", "13800138000"} {
		resp, err := svc.Login(context.Background(), LoginRequest{Username: login, Password: password})
		if err != nil {
			t.Fatalf("login %q: %v", login, err)
		}
		claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
		if err != nil {
			t.Fatalf("parse access token: %v", err)
		}
		if claims.UserID != 17 || claims.Username != "shopper" {
			t.Fatalf("unexpected claims %+v", claims)
		}
		if resp.User == nil || resp.User.ID != 17 {
			t.Fatalf("expected user dto, got %+v", resp.User)
		}
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{ID: 1, Username: "shopper", PasswordHash: mustHashPassword(t, "password123")}

	cases := map[string]struct {
		repo stubUserRepo
		req  LoginRequest
		code pkgerrors.Code
	}{
		"wrong password": {stubUserRepo{user: user}, LoginRequest{Username: "shopper", Password: "nope"}, pkgerrors.CodeUnauthorized},
		"unknown user":   {stubUserRepo{err: gorm.ErrRecordNotFound}, LoginRequest{Username: "ghost", Password: "x"}, pkgerrors.CodeUnauthorized},
		"blank login":    {stubUserRepo{user: user}, LoginRequest{Username: " ", Password: "x"}, pkgerrors.CodeUnauthorized},
		"db failure":     {stubUserRepo{err: errors.New("conn reset")}, LoginRequest{Username: "shopper", Password: "x"}, pkgerrors.CodeInternal},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := buildTestService(t, tc.repo)
			_, err := svc.Login(context.Background(), tc.req)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestServiceLoginUpgradesStaleHash(t *testing.T) {
	weak := config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	strong := weak
	strong.ArgonTime = 2
	stale, err := security.HashPassword("password123", weak)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	var stored string
	repo := stubUserRepo{user: &models.User{ID: 3, Username: "shopper", PasswordHash: stale}, rehashed: &stored}
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT, PasswordConfig: strong})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "shopper", Password: "password123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if stored == "" || security.NeedsRehash(stored, strong) {
		t.Fatalf("expected hash upgraded to current costs, got %q", stored)
	}

	failing := stubUserRepo{user: &models.User{ID: 3, Username: "shopper", PasswordHash: stale}, updateErr: errors.New("db down")}
	svc, err = NewService(ServiceParams{UserRepo: failing, JWTConfig: testJWT, PasswordConfig: strong})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "shopper", Password: "password123"}); err != nil {
		t.Fatalf("rehash failure must not fail login: %v", err)
	}
}

func buildTestService(t *testing.T, repo stubUserRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user      *models.User
	err       error
	rehashed  *string
	updateErr error
}

func (s stubUserRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if s.rehashed != nil {
		*s.rehashed = hash
	}
	return s.updateErr
}

func (s stubUserRepo) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}
