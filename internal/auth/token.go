package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidLogin = errors.New("invalid login")
	ErrExpiredToken = errors.New("expired token")
)

// CredentialVerifier decides whether a username/password pair may obtain
// a token.
type CredentialVerifier interface {
	Verify(username, password string) bool
}

// StaticCredentials verifies against a single pre-shared pair.
type StaticCredentials struct {
	Username string
	Password string
}

func (c StaticCredentials) Verify(username, password string) bool {
	return username == c.Username && password == c.Password
}

// Claims is what a validated token proves.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and validates signed access tokens. The signing
// secret lives only in memory, so a restart invalidates every token
// issued before it.
type TokenService struct {
	verifier CredentialVerifier
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenService(verifier CredentialVerifier, ttl time.Duration) (*TokenService, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("could not generate signing secret: %w", err)
	}

	return &TokenService{
		verifier: verifier,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue returns a signed token for the given credentials, valid for the
// service TTL. Wrong username and wrong password both come back as
// ErrInvalidLogin.
func (s *TokenService) Issue(username, password string) (string, error) {
	if !s.verifier.Verify(username, password) {
		return "", ErrInvalidLogin
	}

	issuedAt := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		ID:        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the token text and returns its claims. An absent,
// malformed or badly signed token fails with ErrInvalidLogin; a properly
// signed token past its expiry fails with ErrExpiredToken.
func (s *TokenService) Validate(tokenText string) (*Claims, error) {
	if tokenText == "" {
		return nil, ErrInvalidLogin
	}

	parsed, err := jwt.ParseWithClaims(tokenText, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidLogin
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, ErrInvalidLogin
		}
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidLogin
	}

	return &Claims{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
