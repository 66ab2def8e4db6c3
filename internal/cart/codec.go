package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieVersion = 1

var cookieSigningMethod = jwt.SigningMethodHS256

var errCookieSchema = errors.New("cart cookie failed schema check")

type cookieLine struct {
	SKUID    int64 `json:"sku_id"`
	Count    int   `json:"count"`
	Selected bool  `json:"selected"`
}

type cookieClaims struct {
	Version int          `json:"v"`
	Lines   []cookieLine `json:"lines"`
	jwt.RegisteredClaims
}

// CookieCodec turns anonymous cart lines into a signed, expiring cookie value and back.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCookieCodec builds a codec signing with secret; every cookie it issues expires after ttl.
func NewCookieCodec(secret string, ttl time.Duration) (*CookieCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("cart cookie secret required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart cookie ttl must be positive")
	}
	return &CookieCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of every issued cookie.
func (c *CookieCodec) TTL() time.Duration {
	return c.ttl
}

// Encode serializes lines, sorted by sku id so equal carts encode the same claims.
func (c *CookieCodec) Encode(lines Lines) (string, error) {
	now := c.now()
	claims := cookieClaims{
		Version: cookieVersion,
		Lines:   make([]cookieLine, 0, len(lines)),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	for _, line := range lines.Sorted() {
		claims.Lines = append(claims.Lines, cookieLine{SKUID: line.SKUID, Count: line.Quantity, Selected: line.Selected})
	}

	token := jwt.NewWithClaims(cookieSigningMethod, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing cart cookie: %w", err)
	}
	return signed, nil
}

// Decode never fails: absent, tampered, expired or malformed cookies read as an empty cart.
func (c *CookieCodec) Decode(raw string) Lines {
	lines, err := c.decode(raw)
	if err != nil {
		return Lines{}
	}
	return lines
}

func (c *CookieCodec) decode(raw string) (Lines, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Lines{}, nil
	}

	claims := &cookieClaims{}
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != cookieSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{cookieSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Version != cookieVersion {
		return nil, fmt.Errorf("%w: version %d", errCookieSchema, claims.Version)
	}

	lines := make(Lines, len(claims.Lines))
	for _, line := range claims.Lines {
		if line.SKUID <= 0 || line.Count <= 0 {
			return nil, fmt.Errorf("%w: invalid line for sku %d", errCookieSchema, line.SKUID)
		}
		if _, dup := lines[line.SKUID]; dup {
			return nil, fmt.Errorf("%w: duplicate sku %d", errCookieSchema, line.SKUID)
		}
		lines[line.SKUID] = Line{SKUID: line.SKUID, Quantity: line.Count, Selected: line.Selected}
	}
	return lines, nil
}
