package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const BcryptCost int = 12

var (
	// ErrInvalidToken is returned when the token is missing, malformed or badly signed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the username of the authenticated user.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and verifies bearer tokens and hashes passwords.
type Manager struct {
	secret []byte
	pepper []byte
	expiry time.Duration
	issuer string
}

func NewManager(secret, pepper string, expiry time.Duration, issuer string) *Manager {
	return &Manager{
		secret: []byte(secret),
		pepper: []byte(pepper),
		expiry: expiry,
		issuer: issuer,
	}
}

// Issue signs a token carrying the username claim.
func (m *Manager) Issue(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the username.
// It must run before any room operation is accepted on a connection.
func (m *Manager) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return "", ErrInvalidToken
	}

	return claims.Username, nil
}

func (m *Manager) HashPassword(password string) (string, error) {
	pepperPW := append([]byte(password), m.pepper...)
	hashedPW, err := bcrypt.GenerateFromPassword(pepperPW, BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPW), nil
}

func (m *Manager) VerifyPassword(hashedPassword, password string) error {
	pepperPW := append([]byte(password), m.pepper...)
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), pepperPW)
}
