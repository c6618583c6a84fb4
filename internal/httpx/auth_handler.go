package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/worldlineout/accessories-api/internal/auth"
)

type AuthHandler struct {
	Manager *auth.Manager
}

func (h *AuthHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/api/auth/login", h.login)
	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Get("/api/auth/verify", h.verify)
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeFail(w, http.StatusBadRequest, "Password is required")
		return
	}

	token, err := h.Manager.Login(req.Password)
	if err != nil {
		writeFail(w, http.StatusUnauthorized, "Invalid password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "token": token, "message": "Login successful",
	})
}

func (h *AuthHandler) verify(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token is valid"})
}
