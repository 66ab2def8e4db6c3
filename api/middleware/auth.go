package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type authenticator struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
	logg     *logger.Logger
	// anonymousOK lets requests without a bearer token through.
	anonymousOK bool
}

// Auth requires a valid, unrevoked bearer token and puts the caller on the
// request context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticator{cfg: cfg, sessions: sessions, logg: logg}.middleware
}

// OptionalAuth authenticates the caller when a bearer token is present and
// lets anonymous requests through untouched. A token that is present but
// invalid is still rejected so clients notice an expired session.
func OptionalAuth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticator{cfg: cfg, sessions: sessions, logg: logg, anonymousOK: true}.middleware
}

func (a authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			if a.anonymousOK {
				next.ServeHTTP(w, r)
				return
			}
			responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		ctx, err := a.authenticate(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), a.logg, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reads "Authorization: Bearer <token>"; a bare token is accepted too.
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "bearer") {
		header = strings.TrimSpace(rest)
	}
	return header, header != ""
}

func (a authenticator) authenticate(ctx context.Context, token string) (context.Context, error) {
	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token id")
	}
	if a.sessions != nil {
		revoked, err := a.sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if revoked {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session ended")
		}
	}

	p := principal{userID: claims.UserID, username: claims.Username, tokenID: claims.ID}
	if claims.ExpiresAt != nil {
		p.expiresAt = claims.ExpiresAt.Time
	}
	return a.logg.WithUserID(withPrincipal(ctx, p), claims.UserID), nil
}
