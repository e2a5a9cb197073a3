package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret-test-signing-secret")

func newTestCodec(t *testing.T, ttl time.Duration) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenConfig{Secret: testSecret, TTL: ttl, Issuer: "pmsapi-test"})
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodec_Validation(t *testing.T) {
	_, err := NewTokenCodec(TokenConfig{TTL: time.Hour})
	assert.Error(t, err, "empty secret must be rejected")

	_, err = NewTokenCodec(TokenConfig{Secret: testSecret, TTL: 500 * time.Millisecond})
	assert.Error(t, err, "sub-second ttl must be rejected")
}

func TestNewTokenCodec_CopiesSecret(t *testing.T) {
	secret := []byte("mutable-secret-mutable-secret-123")
	codec, err := NewTokenCodec(TokenConfig{Secret: secret, TTL: time.Hour})
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	token, err := codec.Encode("alice@example.com", 7, now)
	require.NoError(t, err)

	secret[0] ^= 0xff

	_, err = codec.Decode(token, now)
	assert.NoError(t, err)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	token, err := codec.Encode("alice@example.com", 42, now)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claim, err := codec.Decode(token, now)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claim.Subject)
	assert.Equal(t, int64(42), claim.UserID)
	assert.True(t, claim.IssuedAt.Equal(now), "issuedAt %s != %s", claim.IssuedAt, now)
	assert.True(t, claim.ExpiresAt.Equal(now.Add(time.Hour)))
	assert.True(t, claim.ExpiresAt.After(claim.IssuedAt))
	assert.NotEmpty(t, claim.TokenID)
}

func TestTokenCodec_RoundTripTruncatesSubSecond(t *testing.T) {
	codec := newTestCodec(t, time.Minute)
	now := time.Unix(1_700_000_000, 750_000_000)

	token, err := codec.Encode("bob@example.com", 3, now)
	require.NoError(t, err)

	claim, err := codec.Decode(token, now)
	require.NoError(t, err)
	assert.True(t, claim.IssuedAt.Equal(now.Truncate(time.Second)))
}

func TestTokenCodec_UniqueTokenIDs(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	a, err := codec.Encode("alice@example.com", 1, now)
	require.NoError(t, err)
	b, err := codec.Encode("alice@example.com", 1, now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenCodec_EncodeRejectsMissingIdentity(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Now()

	_, err := codec.Encode("", 1, now)
	assert.Error(t, err)

	_, err = codec.Encode("alice@example.com", 0, now)
	assert.Error(t, err)
}

func TestTokenCodec_Expiry(t *testing.T) {
	ttl := 15 * time.Minute
	codec := newTestCodec(t, ttl)
	issued := time.Unix(1_700_000_000, 0)

	token, err := codec.Encode("alice@example.com", 1, issued)
	require.NoError(t, err)

	t.Run("valid just before expiry", func(t *testing.T) {
		_, err := codec.Decode(token, issued.Add(ttl-time.Second))
		assert.NoError(t, err)
	})

	t.Run("expired at expiry", func(t *testing.T) {
		_, err := codec.Decode(token, issued.Add(ttl))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("expired after expiry", func(t *testing.T) {
		_, err := codec.Decode(token, issued.Add(48*time.Hour))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestTokenCodec_SignatureBitFlips(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	token, err := codec.Encode("alice@example.com", 9, now)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for bit := 0; bit < len(sig)*8; bit++ {
		mutated := make([]byte, len(sig))
		copy(mutated, sig)
		mutated[bit/8] ^= 1 << (bit % 8)

		tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(mutated)
		claim, err := codec.Decode(tampered, now)
		require.ErrorIs(t, err, ErrBadSignature, "bit %d", bit)
		require.Nil(t, claim)
	}
}

func TestTokenCodec_TamperedPayload(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	token, err := codec.Encode("alice@example.com", 9, now)
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	forged := `{"uid":1,"sub":"admin@example.com","iss":"pmsapi-test","iat":1700000000,"exp":1900000000}`
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = codec.Decode(strings.Join(parts, "."), now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	other, err := NewTokenCodec(TokenConfig{Secret: []byte("another-secret-another-secret-xyz"), TTL: time.Hour, Issuer: "pmsapi-test"})
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)

	token, err := other.Encode("alice@example.com", 1, now)
	require.NoError(t, err)

	_, err = codec.Decode(token, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	claims := jwt.MapClaims{
		"sub": "alice@example.com",
		"uid": 1,
		"iss": "pmsapi-test",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(unsigned, now)
	assert.ErrorIs(t, err, ErrBadSignature)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = codec.Decode(hs512, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	for _, input := range []string{"", "not-a-token", "a.b.c", "only.two"} {
		_, err := codec.Decode(input, now)
		assert.ErrorIs(t, err, ErrMalformedToken, "input %q", input)
	}
}

func TestTokenCodec_MissingIdentityClaims(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	claims := jwt.MapClaims{
		"sub": "alice@example.com",
		"iss": "pmsapi-test",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.Decode(token, now)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestTokenCodec_WrongIssuer(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	foreign, err := NewTokenCodec(TokenConfig{Secret: testSecret, TTL: time.Hour, Issuer: "someone-else"})
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)

	token, err := foreign.Encode("alice@example.com", 1, now)
	require.NoError(t, err)

	_, err = codec.Decode(token, now)
	assert.ErrorIs(t, err, ErrMalformedToken)
}
