package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type stubSessions struct {
	revoked map[string]bool
	err     error
}

func (s stubSessions) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

func mintTestToken(t *testing.T, userID int64, jti string) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:   userID,
		Username: "user" + strconv.FormatInt(userID, 10),
		JTI:      jti,
	})
	require.NoError(t, err)
	return token
}

func withAuthHeader(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)
	if value != "" {
		req.Header.Set("Authorization", value)
	}
	return req
}

func TestAuthRejections(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		sessions stubSessions
		want     int
	}{
		{"missing token", "", stubSessions{}, http.StatusUnauthorized},
		{"garbage token", "Bearer invalid", stubSessions{}, http.StatusUnauthorized},
		{"revoked token", "Bearer " + mintTestToken(t, 7, "gone"), stubSessions{revoked: map[string]bool{"gone": true}}, http.StatusUnauthorized},
		{"session store down", "Bearer " + mintTestToken(t, 7, "any"), stubSessions{err: errors.New("redis down")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := &countingHandler{status: http.StatusOK}
			rec := serve(Auth(testJWT, tc.sessions, nil)(next), withAuthHeader(tc.header))
			assert.Equal(t, tc.want, rec.Code)
			assert.Zero(t, next.calls)
		})
	}
}

func TestAuthPutsCallerOnContext(t *testing.T) {
	var (
		user     int64
		username string
		jti      string
		expiry   time.Time
	)
	h := Auth(testJWT, stubSessions{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		username = UsernameFromContext(r.Context())
		jti, expiry = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, withAuthHeader("bearer "+mintTestToken(t, 42, "jti-42")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 42, user)
	assert.Equal(t, "user42", username)
	assert.Equal(t, "jti-42", jti)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)
}

func TestOptionalAuth(t *testing.T) {
	seen := int64(-1)
	h := OptionalAuth(testJWT, stubSessions{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, withAuthHeader(""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, seen, "anonymous caller")

	rec = serve(h, withAuthHeader("Bearer "+mintTestToken(t, 9, "j9")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 9, seen)

	rec = serve(h, withAuthHeader("Bearer expired-or-garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a bad token is not treated as anonymous")
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"BEARER  abc ": "abc",
		"abc":          "abc",
		"":             "",
	}
	for header, want := range cases {
		got, ok := bearerToken(withAuthHeader(header))
		assert.Equal(t, want, got, header)
		assert.Equal(t, want != "", ok, header)
	}
}

func TestContextHelpersCompose(t *testing.T) {
	exp := time.Now().Add(time.Minute)
	ctx := WithToken(WithUserID(context.Background(), 3), "jti", exp)

	assert.EqualValues(t, 3, UserIDFromContext(ctx))
	jti, gotExp := TokenFromContext(ctx)
	assert.Equal(t, "jti", jti)
	assert.Equal(t, exp, gotExp)
}
