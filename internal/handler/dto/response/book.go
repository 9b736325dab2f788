package response

import (
	"time"

	"bookstore/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Author              string     `json:"author"`
	PriceCents          int64      `json:"price_cents"`
	EffectivePriceCents int64      `json:"effective_price_cents"`
	DiscountPercent     *float64   `json:"discount_percent,omitempty"`
	DiscountStartsAt    *time.Time `json:"discount_starts_at,omitempty"`
	DiscountEndsAt      *time.Time `json:"discount_ends_at,omitempty"`
	AvailableQuantity   int32      `json:"available_quantity"`
	SoldCount           int64      `json:"sold_count"`
	CreatedAt           time.Time  `json:"created_at"`
}

type BookListItemResponse struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Author              string    `json:"author"`
	PriceCents          int64     `json:"price_cents"`
	EffectivePriceCents int64     `json:"effective_price_cents"`
	DiscountPercent     *float64  `json:"discount_percent,omitempty"`
	AvailableQuantity   int32     `json:"available_quantity"`
	CreatedAt           time.Time `json:"created_at"`
}

func FromBookView(v *queries.BookView) *BookResponse {
	return &BookResponse{
		ID:                  v.ID,
		Title:               v.Title,
		Author:              v.Author,
		PriceCents:          v.PriceCents,
		EffectivePriceCents: v.EffectivePriceCents,
		DiscountPercent:     v.DiscountPercent,
		DiscountStartsAt:    v.DiscountStartsAt,
		DiscountEndsAt:      v.DiscountEndsAt,
		AvailableQuantity:   v.AvailableQuantity,
		SoldCount:           v.SoldCount,
		CreatedAt:           v.CreatedAt,
	}
}

func FromBookList(items []*queries.BookListItem) []*BookListItemResponse {
	res := make([]*BookListItemResponse, len(items))
	for i, it := range items {
		res[i] = &BookListItemResponse{
			ID:                  it.ID,
			Title:               it.Title,
			Author:              it.Author,
			PriceCents:          it.PriceCents,
			EffectivePriceCents: it.EffectivePriceCents,
			DiscountPercent:     it.DiscountPercent,
			AvailableQuantity:   it.AvailableQuantity,
			CreatedAt:           it.CreatedAt,
		}
	}
	return res
}
