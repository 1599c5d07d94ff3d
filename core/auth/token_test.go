package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2026, time.March, 2, 8, 30, 0, 0, time.UTC)

func newTestService(now time.Time) *TokenService {
	ts := NewTokenService("secret", "Marksheet", 24*time.Hour)
	ts.now = func() time.Time { return now }
	return ts
}

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	ss, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return ss
}

func TestTokenService_Issue(t *testing.T) {
	ts := newTestService(refTime)

	token, err := ts.Issue("t@x.edu")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)
	assert.Equal(t, refTime.Add(24*time.Hour), token.ExpiresAt.UTC())

	email, err := ts.Verify(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "t@x.edu", email)
}

func TestTokenService_Verify(t *testing.T) {
	ts := newTestService(refTime)
	valid, err := ts.Issue("t@x.edu")
	require.NoError(t, err)

	// the same token, one second before and exactly at expiry
	almostExpired := newTestService(refTime.Add(24*time.Hour - time.Second))
	atExpiry := newTestService(refTime.Add(24 * time.Hour))
	longAfter := newTestService(refTime.Add(30 * 24 * time.Hour))

	otherKey := NewTokenService("other-secret", "Marksheet", 24*time.Hour)
	otherKey.now = ts.now
	forged, err := otherKey.Issue("t@x.edu")
	require.NoError(t, err)

	otherIssuer := NewTokenService("secret", "Someone Else", 24*time.Hour)
	otherIssuer.now = ts.now
	foreign, err := otherIssuer.Issue("t@x.edu")
	require.NoError(t, err)

	future := jwt.NewNumericDate(refTime.Add(time.Hour))
	noSubject := signClaims(t, jwt.SigningMethodHS256, []byte("secret"), Claims{jwt.RegisteredClaims{
		Issuer: "Marksheet", ExpiresAt: future,
	}})
	noExpiry := signClaims(t, jwt.SigningMethodHS256, []byte("secret"), Claims{jwt.RegisteredClaims{
		Issuer: "Marksheet", Subject: "t@x.edu",
	}})
	wrongAlg := signClaims(t, jwt.SigningMethodHS512, []byte("secret"), Claims{jwt.RegisteredClaims{
		Issuer: "Marksheet", Subject: "t@x.edu", ExpiresAt: future,
	}})
	unsigned := signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, Claims{jwt.RegisteredClaims{
		Issuer: "Marksheet", Subject: "t@x.edu", ExpiresAt: future,
	}})

	parts := strings.Split(valid.Value, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name      string
		svc       *TokenService
		token     string
		wantEmail string
		wantErr   error
	}{
		{name: "valid", svc: ts, token: valid.Value, wantEmail: "t@x.edu"},
		{name: "valid until the last second", svc: almostExpired, token: valid.Value, wantEmail: "t@x.edu"},
		{name: "empty", svc: ts, token: "", wantErr: ErrInvalidToken},
		{name: "garbage", svc: ts, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "expired at exact expiry", svc: atExpiry, token: valid.Value, wantErr: ErrExpiredToken},
		{name: "expired", svc: longAfter, token: valid.Value, wantErr: ErrExpiredToken},
		{name: "expired with a bad signature", svc: longAfter, token: tampered, wantErr: ErrExpiredToken},
		{name: "expired with another key", svc: longAfter, token: forged.Value, wantErr: ErrExpiredToken},
		{name: "tampered signature", svc: ts, token: tampered, wantErr: ErrInvalidToken},
		{name: "signed with another key", svc: ts, token: forged.Value, wantErr: ErrInvalidToken},
		{name: "other issuer", svc: ts, token: foreign.Value, wantErr: ErrInvalidToken},
		{name: "missing subject", svc: ts, token: noSubject, wantErr: ErrInvalidToken},
		{name: "missing expiry", svc: ts, token: noExpiry, wantErr: ErrInvalidToken},
		{name: "unexpected algorithm", svc: ts, token: wrongAlg, wantErr: ErrInvalidToken},
		{name: "alg none", svc: ts, token: unsigned, wantErr: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := tt.svc.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, email)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmail, email)
		})
	}
}
