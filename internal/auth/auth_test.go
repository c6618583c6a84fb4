package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginAndVerify(t *testing.T) {
	m := NewManager("test-jwt-secret", "hunter2")

	if _, err := m.Login("wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}

	token, err := m.Login("hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Verify(token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := m.Verify(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token: got %v", err)
	}
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	m := NewManager("test-jwt-secret", "")
	if _, err := m.Login(""); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("empty admin password must refuse all logins, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager("test-jwt-secret", "hunter2")
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := m.Middleware(next)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	token, _ := m.Login("hunter2")
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("valid token: status = %d, want 204", w.Code)
	}

	// token signed with another secret
	other := NewManager("other-secret", "hunter2")
	otherToken, _ := other.Login("hunter2")
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+otherToken)
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: status = %d, want 401", w.Code)
	}
}
