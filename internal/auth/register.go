package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"gorm.io/gorm"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{5,20}$`)
	passwordPattern = regexp.MustCompile(`^[0-9A-Za-z]{8,20}$`)
	mobilePattern   = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// RegisterRequest contains the payload required to open an account.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
	Mobile    string `json:"mobile" validate:"required"`
	SMSCode   string `json:"sms_code" validate:"required"`
	Allow     bool   `json:"allow"`
}

type smsChecker interface {
	CheckSMSCode(ctx context.Context, mobile, code string) error
}

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	SMS            smsChecker
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
}

type registerService struct {
	db          *db.Client
	sms         smsChecker
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.SMS == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sms verifier required")
	}
	return &registerService{
		db:          params.DB,
		sms:         params.SMS,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	mobile := strings.TrimSpace(req.Mobile)
	switch {
	case !usernamePattern.MatchString(username):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must be 5-20 letters, digits, _ or -")
	case !passwordPattern.MatchString(req.Password):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be 8-20 letters or digits")
	case req.Password != req.Password2:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	case !mobilePattern.MatchString(mobile):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid mobile")
	case !req.Allow:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allow must be true")
	}

	if err := s.sms.CheckSMSCode(ctx, mobile, req.SMSCode); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	var token string
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if n, err := userRepo.CountByUsername(ctx, username); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
		} else if n > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "username already registered")
		}
		if n, err := userRepo.CountByMobile(ctx, mobile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check mobile")
		} else if n > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "mobile already registered")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Username:     username,
			PasswordHash: passwordHash,
			Mobile:       mobile,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "username or mobile already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		resp, err := issue(s.jwtCfg, time.Now().UTC(), user)
		if err != nil {
			return err
		}
		created, token = resp.User, resp.AccessToken
		return nil
	})
	if err != nil {
		var typed *pkgerrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register")
	}
	return &AuthResponse{AccessToken: token, User: created}, nil
}
