package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret"

func newTestCodec(t *testing.T, clock *testClock) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec(TokenConfig{
		Secret:          testSecret,
		Issuer:          "itemhub",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Clock:           clock.Now,
	})
	require.NoError(t, err)
	return codec
}

func signRaw(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewTokenCodecRequiresSecret(t *testing.T) {
	_, err := NewTokenCodec(TokenConfig{})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestNewTokenCodecDefaults(t *testing.T) {
	codec, err := NewTokenCodec(TokenConfig{Secret: testSecret})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, codec.AccessTokenTTL())
	require.Equal(t, DefaultRefreshTokenTTL, codec.RefreshTokenTTL())
}

func TestIssueAndDecodeAccessToken(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	token, err := codec.IssueAccessToken("user-1")
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	payload, err := codec.DecodeAccess(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", payload.Subject)
	require.Equal(t, GrantAccess, payload.GrantType)
	require.Empty(t, payload.Fingerprint)
	require.NotEmpty(t, payload.TokenID)
	require.True(t, payload.IssuedAt.Equal(clock.Now()))
	require.True(t, payload.ExpiresAt.Equal(clock.Now().Add(15*time.Minute)))
}

func TestIssuePairSharesSubject(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	pair, err := codec.IssuePair("user-1", "device-a")
	require.NoError(t, err)

	access, err := codec.DecodeAccess(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := codec.DecodeRefresh(pair.RefreshToken)
	require.NoError(t, err)

	require.Equal(t, access.Subject, refresh.Subject)
	require.Equal(t, "device-a", refresh.Fingerprint)
	require.True(t, refresh.ExpiresAt.After(access.ExpiresAt))
}

func TestIssuedTokensAreUniqueWithinSameSecond(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	first, err := codec.IssueRefreshToken("user-1", "device-a")
	require.NoError(t, err)
	second, err := codec.IssueRefreshToken("user-1", "device-a")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestIssueRejectsMissingInputs(t *testing.T) {
	codec := newTestCodec(t, newTestClock(time.Now()))

	_, err := codec.IssueAccessToken("")
	require.Error(t, err)
	_, err = codec.IssueRefreshToken("user-1", "")
	require.Error(t, err)
}

func TestDecodeExpiredToken(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	token, err := codec.IssueAccessToken("user-1")
	require.NoError(t, err)

	clock.Advance(15*time.Minute + time.Second)

	_, err = codec.Decode(token)
	require.ErrorIs(t, err, ErrExpiredToken)
	require.NotErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsTamperedSignature(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	token, err := codec.IssueAccessToken("user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Decode(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsForeignSecretAndGarbage(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	foreign := signRaw(t, jwt.MapClaims{
		"sub":        "user-1",
		"grant_type": "access",
		"iss":        "itemhub",
		"iat":        clock.Now().Unix(),
		"exp":        clock.Now().Add(time.Minute).Unix(),
	}, "other-secret")

	_, err := codec.Decode(foreign)
	require.ErrorIs(t, err, ErrInvalidToken)

	for _, raw := range []string{"", "   ", "not-a-token", "a.b.c"} {
		_, err := codec.Decode(raw)
		require.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestDecodeRejectsUnexpectedAlgorithm(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub":        "user-1",
		"grant_type": "access",
		"iss":        "itemhub",
		"exp":        clock.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Decode(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeMalformedPayloads(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)
	exp := clock.Now().Add(time.Minute).Unix()

	cases := map[string]jwt.MapClaims{
		"missing subject":          {"grant_type": "access", "iss": "itemhub", "exp": exp},
		"missing grant type":       {"sub": "user-1", "iss": "itemhub", "exp": exp},
		"unknown grant type":       {"sub": "user-1", "grant_type": "password", "iss": "itemhub", "exp": exp},
		"refresh no fingerprint":   {"sub": "user-1", "grant_type": "refresh", "iss": "itemhub", "exp": exp},
		"access with fingerprint":  {"sub": "user-1", "grant_type": "access", "fingerprint": "d", "iss": "itemhub", "exp": exp},
		"missing expiry":           {"sub": "user-1", "grant_type": "access", "iss": "itemhub"},
		"grant type wrong literal": {"sub": "user-1", "grant_type": "Access", "iss": "itemhub", "exp": exp},
	}

	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(signRaw(t, claims, testSecret))
			require.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestDecodeGrantMismatch(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	pair, err := codec.IssuePair("user-1", "device-a")
	require.NoError(t, err)

	_, err = codec.DecodeRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = codec.DecodeAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodeRejectsWrongIssuer(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(t, clock)

	token := signRaw(t, jwt.MapClaims{
		"sub":        "user-1",
		"grant_type": "access",
		"iss":        "someone-else",
		"exp":        clock.Now().Add(time.Minute).Unix(),
	}, testSecret)

	_, err := codec.Decode(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
