package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrBadCredentials = errors.New("invalid password")
	ErrInvalidToken   = errors.New("invalid token")
)

const tokenTTL = 7 * 24 * time.Hour

// Manager issues and verifies the single-admin JWT.
type Manager struct {
	secret        []byte
	adminPassword string
}

func NewManager(jwtSecret, adminPassword string) *Manager {
	return &Manager{secret: []byte(jwtSecret), adminPassword: adminPassword}
}

func (m *Manager) Login(password string) (string, error) {
	if m.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(password), []byte(m.adminPassword)) != 1 {
		return "", ErrBadCredentials
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	})
	return tok.SignedString(m.secret)
}

func (m *Manager) Verify(tokenString string) error {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != "admin" {
		return ErrInvalidToken
	}
	return nil
}

// Middleware guards admin routes with a Bearer token.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || m.Verify(token) != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Not authorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
