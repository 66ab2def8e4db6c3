package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// maxPeekBytes bounds how much of an auth body is buffered to find the account.
const maxPeekBytes = 64 << 10

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth surface by client IP and by the
// account named in the request body.
type AuthRateLimitPolicy struct {
	name         string
	window       time.Duration
	ipLimit      int64
	accountLimit int64
}

// NewAuthRateLimitPolicy builds a policy. A zero limit disables that counter;
// a zero window disables the policy.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, accountLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:         name,
		window:       window,
		ipLimit:      int64(ipLimit),
		accountLimit: int64(accountLimit),
	}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.accountLimit > 0)
}

// check is one counter to consult for a request.
type check struct {
	scope string
	label string
	value string
	limit int64
}

type authLimiter struct {
	policy AuthRateLimitPolicy
	store  windowLimiter
	logg   *logger.Logger
}

// AuthRateLimit rejects auth requests with RATE_LIMIT_EXCEEDED once either
// the IP or the account counter passes its limit inside the window.
func AuthRateLimit(policy AuthRateLimitPolicy, store windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	l := &authLimiter{policy: policy, store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			checks, err := l.checksFor(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for _, c := range checks {
				allowed, count, err := store.FixedWindowAllow(r.Context(), c.scope, c.limit, policy.window)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit store unavailable"))
					return
				}
				if !allowed {
					l.reject(r.Context(), w, c, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checksFor lists the counters for r and restores r.Body after peeking.
func (l *authLimiter) checksFor(r *http.Request) ([]check, error) {
	p := l.policy
	var out []check
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		out = append(out, check{scope: p.name + ":ip:" + ip, label: "ip", value: ip, limit: p.ipLimit})
	}
	if p.accountLimit == 0 || r.Body == nil {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body")
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

	if account := accountFromBody(body); account != "" {
		digest := accountDigest(account)
		out = append(out, check{scope: p.name + ":account:" + digest, label: "account_hash", value: digest, limit: p.accountLimit})
	}
	return out, nil
}

func (l *authLimiter) reject(ctx context.Context, w http.ResponseWriter, c check, count int64) {
	w.Header().Set("Retry-After", strconv.Itoa(int(l.policy.window.Seconds())))
	if l.logg != nil {
		l.logg.Warn(l.logg.WithFields(ctx, map[string]any{
			"policy":   l.policy.name,
			c.label:    c.value,
			"attempts": count,
			"limit":    c.limit,
		}), "auth.rate_limited")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// accountFromBody returns the username, or the mobile when no username is
// sent, lower-cased and trimmed.
func accountFromBody(payload []byte) string {
	var body struct {
		Username string `json:"username"`
		Mobile   string `json:"mobile"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	account := strings.TrimSpace(body.Username)
	if account == "" {
		account = strings.TrimSpace(body.Mobile)
	}
	return strings.ToLower(account)
}

func accountDigest(account string) string {
	sum := sha256.Sum256([]byte(account))
	return hex.EncodeToString(sum[:8])
}
