// Package auth mints and verifies the storefront's HS256 JWTs: access
// tokens for API calls and short-lived email verification tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// Each token kind carries its own audience so one can never stand in for
// the other.
const (
	accessAudience = "access"
	emailAudience  = "email_verification"
)

// clockSkew tolerates small drift between replicas.
const clockSkew = 5 * time.Second

var (
	errNoSecret  = errors.New("jwt secret is required")
	errNoIssuer  = errors.New("jwt issuer is required")
	errNoSubject = errors.New("token missing user id")
)

// MintAccessToken signs an access token valid for cfg.ExpirationMinutes
// from now. An empty payload.JTI gets a random one.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if payload.UserID <= 0 {
		return "", errNoSubject
	}
	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	return sign(cfg, &AccessTokenClaims{
		UserID:           payload.UserID,
		Username:         payload.Username,
		RegisteredClaims: registered(cfg, now, ttl, accessAudience, jti),
	})
}

// ParseAccessToken verifies signature, issuer, audience and expiry.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := verify(cfg, raw, accessAudience, claims); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, errNoSubject
	}
	return claims, nil
}

// MintEmailToken binds userID to the address being verified for ttl.
func MintEmailToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, userID int64, email string) (string, error) {
	if ttl <= 0 {
		return "", errors.New("email token ttl must be positive")
	}
	return sign(cfg, &EmailTokenClaims{
		UserID:           userID,
		Email:            email,
		RegisteredClaims: registered(cfg, now, ttl, emailAudience, ""),
	})
}

// ParseEmailToken verifies an email verification token.
func ParseEmailToken(cfg config.JWTConfig, raw string) (*EmailTokenClaims, error) {
	claims := &EmailTokenClaims{}
	if err := verify(cfg, raw, emailAudience, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func registered(cfg config.JWTConfig, now time.Time, ttl time.Duration, audience, jti string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}
}

func sign(cfg config.JWTConfig, claims jwt.Claims) (string, error) {
	if cfg.Secret == "" {
		return "", errNoSecret
	}
	if cfg.Issuer == "" {
		return "", errNoIssuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func verify(cfg config.JWTConfig, raw, audience string, claims jwt.Claims) error {
	if cfg.Secret == "" {
		return errNoSecret
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	})
	return err
}
