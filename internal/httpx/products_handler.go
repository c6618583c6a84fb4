package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/worldlineout/accessories-api/internal/catalog"
	"github.com/worldlineout/accessories-api/internal/redisx"
)

type ProductsHandler struct {
	Repo  *catalog.Repo
	Redis *redis.Client
	Log   *zap.Logger
}

func (h *ProductsHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/api/products", h.list)
	r.Get("/api/products/categories", h.categories)
	r.Get("/api/products/{id}", h.get)
	r.Post("/api/products/{id}/reviews", h.addReview) // public, any customer can review
	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Post("/api/products", h.create)
		g.Put("/api/products/{id}", h.update)
		g.Delete("/api/products/{id}", h.delete)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     atoiDefault(q.Get("page"), 1),
		Limit:    atoiDefault(q.Get("limit"), 50),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// cache hit serves the marshaled envelope as-is
	key := fmt.Sprintf(redisx.KeyCatalogList, f.Category, f.Search, f.Page, f.Limit)
	if cached, err := h.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(cached))
		return
	}

	products, total, err := h.Repo.List(ctx, f)
	if err != nil {
		h.Log.Error("list products", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not list products")
		return
	}

	body, _ := json.Marshal(map[string]any{
		"success": true,
		"data":    products,
		"total":   total,
		"page":    f.Page,
	})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLCatalogCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.Get(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Log.Error("get product", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not load product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": p})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.Name == "" || p.Category == "" || p.Price < 0 {
		writeFail(w, http.StatusBadRequest, "name, category and a non-negative price are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Create(ctx, &p); err != nil {
		h.Log.Error("create product", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not create product")
		return
	}
	h.invalidateListCache(ctx)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true, "data": p, "message": "Product created successfully",
	})
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	p.ID = chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	updated, err := h.Repo.Update(ctx, &p)
	if errors.Is(err, catalog.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Log.Error("update product", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not update product")
		return
	}
	h.invalidateListCache(ctx)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "data": updated, "message": "Product updated successfully",
	})
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Repo.Delete(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Log.Error("delete product", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not delete product")
		return
	}
	h.invalidateListCache(ctx)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Product deleted successfully"})
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cats, err := h.Repo.Categories(ctx)
	if err != nil {
		h.Log.Error("categories", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": cats})
}

func (h *ProductsHandler) addReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Rating < 1 || req.Rating > 5 || req.Comment == "" {
		writeFail(w, http.StatusBadRequest, "Name, rating and comment are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	if _, err := h.Repo.Get(ctx, id); errors.Is(err, catalog.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "Product not found")
		return
	} else if err != nil {
		h.Log.Error("add review", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not add review")
		return
	}

	p, err := h.Repo.AddReview(ctx, &catalog.Review{
		ProductID: id, Name: req.Name, Rating: req.Rating, Comment: req.Comment,
	})
	if err != nil {
		h.Log.Error("add review", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not add review")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": p, "message": "Review added!"})
}

// invalidateListCache drops listing keys lazily by scanning the prefix.
func (h *ProductsHandler) invalidateListCache(ctx context.Context) {
	iter := h.Redis.Scan(ctx, 0, "catalog:list:*", 100).Iterator()
	for iter.Next(ctx) {
		_ = h.Redis.Del(ctx, iter.Val()).Err()
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
