package content

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Slide is one hero banner on the storefront home page.
type Slide struct {
	Badge    string `json:"badge"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	CTA      string `json:"cta"`
	Link     string `json:"link"`
	Gradient string `json:"gradient"`
	Accent   string `json:"accent"`
	Img      string `json:"img"`
}

type CategoryImage struct {
	Name string `json:"name"`
	Img  string `json:"img"`
	Sub  string `json:"sub"`
}

// Settings is a singleton document keyed 'main'.
type Settings struct {
	Key            string          `json:"key"`
	Slides         []Slide         `json:"slides"`
	CategoryImages []CategoryImage `json:"categoryImages"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

const settingsKey = "main"

type Repo struct{ DB *pgxpool.Pool }

// Get returns the site settings, seeding defaults on first access.
func (r *Repo) Get(ctx context.Context) (*Settings, error) {
	s, err := r.fetch(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO site_settings(key, slides, category_images)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING`,
		settingsKey, defaultSlides, defaultCategories)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx)
}

// Update overwrites whichever sections are present; nil sections keep their
// stored value.
func (r *Repo) Update(ctx context.Context, slides []Slide, categoryImages []CategoryImage) (*Settings, error) {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO site_settings(key, slides, category_images)
		VALUES ($1, COALESCE($2, '[]'::jsonb), COALESCE($3, '[]'::jsonb))
		ON CONFLICT (key) DO UPDATE SET
			slides          = COALESCE($2, site_settings.slides),
			category_images = COALESCE($3, site_settings.category_images),
			updated_at      = now()`,
		settingsKey, nullable(slides), nullable(categoryImages))
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx)
}

func (r *Repo) fetch(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.DB.QueryRow(ctx,
		`SELECT key, slides, category_images, updated_at FROM site_settings WHERE key=$1`, settingsKey,
	).Scan(&s.Key, &s.Slides, &s.CategoryImages, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// nullable maps an absent slice to SQL NULL so COALESCE keeps the stored
// value.
func nullable[T any](v []T) any {
	if v == nil {
		return nil
	}
	return v
}
