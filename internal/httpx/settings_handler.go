package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/worldlineout/accessories-api/internal/content"
)

type SettingsHandler struct {
	Repo *content.Repo
	Log  *zap.Logger
}

func (h *SettingsHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/api/settings", h.get) // public, the storefront reads this
	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Put("/api/settings", h.update)
	})
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Repo.Get(ctx)
	if err != nil {
		h.Log.Error("get settings", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": s})
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slides         []content.Slide         `json:"slides"`
		CategoryImages []content.CategoryImage `json:"categoryImages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Repo.Update(ctx, req.Slides, req.CategoryImages)
	if err != nil {
		h.Log.Error("update settings", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not update settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": s})
}
