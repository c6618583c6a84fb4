package catalog

import "time"

// Product is the authoritative record for pricing and stock. Order totals
// are always recomputed from it, never taken from a client payload.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"` // whole rupees
	Stock       int       `json:"stock"`
	Image       string    `json:"image"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Review struct {
	ID        int64     `json:"id"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter narrows the public product listing.
type Filter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Category == "All" {
		f.Category = ""
	}
	return f
}
