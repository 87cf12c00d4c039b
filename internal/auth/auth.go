// Package auth issues and checks the bearer tokens of the control API. There
// is a single admin principal whose bcrypt password hash comes from the
// environment.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer = "musicfree-sync"
	// AdminSubject is the subject of every issued token.
	AdminSubject = "admin"
)

var (
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid password")
	// ErrUnauthorized indicates an invalid, expired or missing token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Manager signs HS256 tokens after checking the admin password.
type Manager struct {
	secret       []byte
	passwordHash []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewManager creates a Manager.
func NewManager(secret, passwordHash string, ttl time.Duration) *Manager {
	return &Manager{
		secret:       []byte(secret),
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Login checks the password and returns a signed token with its expiry.
func (m *Manager) Login(password string) (string, time.Time, error) {
	if password == "" || bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return m.GenerateToken(AdminSubject)
}

// GenerateToken signs a token for subject.
func (m *Manager) GenerateToken(subject string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Validate parses the token and returns its subject.
func (m *Manager) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims.Subject, nil
}

// HashPassword returns the bcrypt hash used for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
