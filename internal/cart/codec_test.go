package cart

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, now time.Time) *CookieCodec {
	t.Helper()
	codec, err := NewCookieCodec("cookie-secret", 14*24*time.Hour)
	require.NoError(t, err)
	codec.now = func() time.Time { return now }
	return codec
}

func TestCookieRoundTrip(t *testing.T) {
	codec := newTestCodec(t, time.Now())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 25; i++ {
		lines := Lines{}
		for j := 0; j < rng.Intn(8); j++ {
			id := int64(rng.Intn(500) + 1)
			lines[id] = Line{SKUID: id, Quantity: rng.Intn(9) + 1, Selected: rng.Intn(2) == 0}
		}
		raw, err := codec.Encode(lines)
		require.NoError(t, err)
		assert.Equal(t, lines, codec.Decode(raw))
	}
}

func TestCookieEncodeIsOrderIndependent(t *testing.T) {
	codec := newTestCodec(t, time.Unix(1_700_000_000, 0))
	a := Lines{1: {SKUID: 1, Quantity: 2}, 9: {SKUID: 9, Quantity: 1, Selected: true}}
	b := Lines{9: {SKUID: 9, Quantity: 1, Selected: true}, 1: {SKUID: 1, Quantity: 2}}

	rawA, err := codec.Encode(a)
	require.NoError(t, err)
	rawB, err := codec.Encode(b)
	require.NoError(t, err)
	assert.Equal(t, rawA, rawB)
}

func TestCookieDecodeRejectsBadInput(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, now)
	raw, err := codec.Encode(Lines{5: {SKUID: 5, Quantity: 1, Selected: true}})
	require.NoError(t, err)

	other, err := NewCookieCodec("another-secret", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	later := newTestCodec(t, now.Add(15*24*time.Hour))

	cases := map[string]struct {
		codec *CookieCodec
		raw   string
	}{
		"empty":        {codec, ""},
		"garbage":      {codec, "not-a-cookie"},
		"tampered":     {codec, tampered},
		"wrong secret": {other, raw},
		"expired":      {later, raw},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, tc.codec.Decode(tc.raw))
		})
	}
}

func signClaims(t *testing.T, claims cookieClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("cookie-secret"))
	require.NoError(t, err)
	return raw
}

func TestCookieDecodeSchemaChecks(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, now)
	registered := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	cases := map[string]cookieClaims{
		"wrong version":  {Version: 2, Lines: []cookieLine{{SKUID: 1, Count: 1}}, RegisteredClaims: registered},
		"zero count":     {Version: 1, Lines: []cookieLine{{SKUID: 1, Count: 0}}, RegisteredClaims: registered},
		"negative sku":   {Version: 1, Lines: []cookieLine{{SKUID: -3, Count: 1}}, RegisteredClaims: registered},
		"duplicate sku":  {Version: 1, Lines: []cookieLine{{SKUID: 4, Count: 1}, {SKUID: 4, Count: 2}}, RegisteredClaims: registered},
		"missing expiry": {Version: 1, Lines: []cookieLine{{SKUID: 1, Count: 1}}},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.decode(signClaims(t, claims))
			require.Error(t, err)
			assert.Empty(t, codec.Decode(signClaims(t, claims)))
		})
	}
}

func TestNewCookieCodecValidates(t *testing.T) {
	_, err := NewCookieCodec(" ", time.Hour)
	assert.Error(t, err)
	_, err = NewCookieCodec("secret", 0)
	assert.Error(t, err)
}
