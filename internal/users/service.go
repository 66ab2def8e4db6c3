package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Service covers the signed-in user's profile and the public availability checks.
type Service interface {
	Get(ctx context.Context, userID int64) (*UserDTO, error)
	UsernameCount(ctx context.Context, username string) (int64, error)
	MobileCount(ctx context.Context, mobile string) (int64, error)
	SetEmail(ctx context.Context, userID int64, email string) error
	VerifyEmail(ctx context.Context, token string) error
}

// ServiceParams bundles the profile service dependencies.
type ServiceParams struct {
	Repo         *Repository
	Notifier     notifications.Dispatcher
	JWTConfig    config.JWTConfig
	Verification config.VerificationConfig
	Now          func() time.Time
}

type service struct {
	repo      *Repository
	notifier  notifications.Dispatcher
	jwtCfg    config.JWTConfig
	verifyCfg config.VerificationConfig
	validate  *validator.Validate
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:      params.Repo,
		notifier:  params.Notifier,
		jwtCfg:    params.JWTConfig,
		verifyCfg: params.Verification,
		validate:  validator.New(),
		now:       params.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, userID int64) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UsernameCount(ctx context.Context, username string) (int64, error) {
	count, err := s.repo.CountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count usernames")
	}
	return count, nil
}

func (s *service) MobileCount(ctx context.Context, mobile string) (int64, error) {
	count, err := s.repo.CountByMobile(ctx, strings.TrimSpace(mobile))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count mobiles")
	}
	return count, nil
}

// SetEmail stores the address unverified and mails a signed verification link.
func (s *service) SetEmail(ctx context.Context, userID int64, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	if err := s.repo.UpdateEmail(ctx, userID, email); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update email")
	}

	token, err := pkgAuth.MintEmailToken(s.jwtCfg, s.now(), s.verifyCfg.EmailTokenTTL, userID, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint email token")
	}
	link, err := verifyLink(s.verifyCfg.EmailVerifyURL, token)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build verify link")
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Channel:   enums.NotificationChannelEmail,
		Event:     notifications.EventEmailVerification,
		Recipient: email,
		Data:      map[string]any{"verify_url": link},
	})
	return nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token required")
	}
	claims, err := pkgAuth.ParseEmailToken(s.jwtCfg, token)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid or expired token")
	}
	ok, err := s.repo.ActivateEmail(ctx, claims.UserID, claims.Email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate email")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "email changed since the link was sent")
	}
	return nil
}

func verifyLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
