package verifications

import (
	"context"
	stdErrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/redis/go-redis/v9"
)

const codeLength = 6

var mobilePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

type codeStore interface {
	SMSCodeKey(mobile string) string
	SMSFlagKey(mobile string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Service issues and checks one-time SMS codes.
type Service interface {
	SendSMSCode(ctx context.Context, mobile string) error
	CheckSMSCode(ctx context.Context, mobile, code string) error
}

type service struct {
	store    codeStore
	notifier notifications.Dispatcher
	logg     *logger.Logger
	codeTTL  time.Duration
	resend   time.Duration
}

// NewService builds the SMS verification service.
func NewService(store codeStore, notifier notifications.Dispatcher, logg *logger.Logger, codeTTL, resend time.Duration) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("code store required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if codeTTL <= 0 || resend <= 0 {
		return nil, fmt.Errorf("sms code ttl and resend window must be positive")
	}
	return &service{store: store, notifier: notifier, logg: logg, codeTTL: codeTTL, resend: resend}, nil
}

// SendSMSCode refuses a resend inside the resend window.
func (s *service) SendSMSCode(ctx context.Context, mobile string) error {
	mobile = strings.TrimSpace(mobile)
	if !mobilePattern.MatchString(mobile) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid mobile")
	}

	flagKey := s.store.SMSFlagKey(mobile)
	reserved, err := s.store.SetNX(ctx, flagKey, 1, s.resend)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve sms flag")
	}
	if !reserved {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "sms code sent too frequently")
	}

	code, err := security.RandomDigits(codeLength)
	if err != nil {
		s.releaseFlag(ctx, flagKey)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate sms code")
	}
	if err := s.store.Set(ctx, s.store.SMSCodeKey(mobile), code, s.codeTTL); err != nil {
		s.releaseFlag(ctx, flagKey)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store sms code")
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Channel:   enums.NotificationChannelSMS,
		Event:     notifications.EventSMSCode,
		Recipient: mobile,
		Data: map[string]any{
			"code":        code,
			"ttl_minutes": int(s.codeTTL / time.Minute),
		},
	})
	return nil
}

// releaseFlag lets the caller retry right away when no code went out.
func (s *service) releaseFlag(ctx context.Context, flagKey string) {
	if err := s.store.Del(ctx, flagKey); err != nil {
		s.logg.WarnErr(ctx, "verifications.sms_flag_release_failed", err)
	}
}

// CheckSMSCode consumes the code on a match so it cannot be replayed.
func (s *service) CheckSMSCode(ctx context.Context, mobile, code string) error {
	mobile = strings.TrimSpace(mobile)
	code = strings.TrimSpace(code)
	if mobile == "" || code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "mobile and sms code required")
	}

	key := s.store.SMSCodeKey(mobile)
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return pkgerrors.New(pkgerrors.CodeValidation, "sms code expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read sms code")
	}
	if stored != code {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms code mismatch")
	}
	if err := s.store.Del(ctx, key); err != nil {
		s.logg.WarnErr(ctx, "verifications.sms_code_delete_failed", err)
	}
	return nil
}
