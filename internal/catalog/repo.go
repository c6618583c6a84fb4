package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, category, price, stock, image, rating, review_count, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock,
		&p.Image, &p.Rating, &p.ReviewCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns active products newest-first, filtered by category and a
// case-insensitive name/description search, plus the total match count.
func (r *Repo) List(ctx context.Context, f Filter) ([]Product, int, error) {
	f = f.normalized()

	where := `WHERE is_active`
	args := []any{}
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d)`, len(args), len(args))
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productCols, where, len(args)-1, len(args))
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Product, 0, f.Limit)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock,
			&p.Image, &p.Rating, &p.ReviewCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Rating == 0 {
		p.Rating = 4.0
	}
	return r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, category, price, stock, image, rating, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Stock, p.Image, p.Rating, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) Update(ctx context.Context, p *Product) (*Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products
		SET name=$2, description=$3, category=$4, price=$5, stock=$6, image=$7, is_active=$8, updated_at=now()
		WHERE id=$1
		RETURNING `+productCols, p.ID, p.Name, p.Description, p.Category, p.Price, p.Stock, p.Image, p.IsActive))
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT DISTINCT category FROM products WHERE is_active ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DecrementStock applies a single atomic decrement, flooring at zero so the
// stock >= 0 invariant holds even under concurrent paid orders.
func (r *Repo) DecrementStock(ctx context.Context, id string, qty int) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at=now() WHERE id=$1`, id, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddReview stores a review and refreshes the product's aggregate rating.
func (r *Repo) AddReview(ctx context.Context, rev *Review) (*Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO product_reviews(product_id, name, rating, comment)
		VALUES ($1,$2,$3,$4) RETURNING id, created_at`,
		rev.ProductID, rev.Name, rev.Rating, rev.Comment,
	).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(tx.QueryRow(ctx, `
		UPDATE products SET
			rating = (SELECT ROUND(AVG(rating)::numeric, 2) FROM product_reviews WHERE product_id=$1),
			review_count = (SELECT COUNT(*) FROM product_reviews WHERE product_id=$1),
			updated_at = now()
		WHERE id=$1
		RETURNING `+productCols, rev.ProductID))
	if err != nil {
		return nil, err
	}
	return p, tx.Commit(ctx)
}
