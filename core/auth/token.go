// Package auth issues and verifies the stateless bearer tokens that identify a faculty member.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")

	signingMethod = jwt.SigningMethodHS256
)

// Claims represents the authorization claims transmitted via a JWT.
// The faculty email is carried in the standard `sub` claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is a signed bearer credential and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type TokenService struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secretKey, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		key:    []byte(secretKey),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue generates a signed token for the given email, valid for the service's TTL.
func (ts *TokenService) Issue(email string) (Token, error) {
	now := ts.now()
	exp := now.Add(ts.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	ss, err := jwt.NewWithClaims(signingMethod, claims).SignedString(ts.key)
	if err != nil {
		return Token{}, errors.Wrap(err, "signing token")
	}
	// NumericDate has second precision
	return Token{Value: ss, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks the token and returns the email it was issued for.
// Expiry is checked before the signature: a token past its expiry always yields ErrExpiredToken.
func (ts *TokenService) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	var unverified Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &unverified); err != nil {
		return "", ErrInvalidToken
	}
	if unverified.ExpiresAt == nil {
		return "", ErrInvalidToken
	}
	now := ts.now()
	if !now.Before(unverified.ExpiresAt.Time) {
		return "", ErrExpiredToken
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(ts.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	)
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return ts.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
