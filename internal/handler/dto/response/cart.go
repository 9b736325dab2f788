package response

import (
	"bookstore/internal/usecase/queries"

	"github.com/google/uuid"
)

type CartLineResponse struct {
	BookID              uuid.UUID `json:"book_id"`
	Title               string    `json:"title"`
	Author              string    `json:"author"`
	Quantity            int32     `json:"quantity"`
	PriceCents          int64     `json:"price_cents"`
	EffectivePriceCents int64     `json:"effective_price_cents"`
	DiscountPercent     *float64  `json:"discount_percent,omitempty"`
}

type CartResponse struct {
	ID                     uuid.UUID          `json:"id"`
	OwnerID                uuid.UUID          `json:"owner_id"`
	Lines                  []CartLineResponse `json:"lines"`
	TotalQuantity          int32              `json:"total_quantity"`
	EstimatedSubtotalCents int64              `json:"estimated_subtotal_cents"`
}

func FromCartView(v *queries.CartView) *CartResponse {
	lines := make([]CartLineResponse, len(v.Lines))
	for i, l := range v.Lines {
		lines[i] = CartLineResponse{
			BookID:              l.BookID,
			Title:               l.Title,
			Author:              l.Author,
			Quantity:            l.Quantity,
			PriceCents:          l.PriceCents,
			EffectivePriceCents: l.EffectivePriceCents,
			DiscountPercent:     l.DiscountPercent,
		}
	}
	return &CartResponse{
		ID:                     v.ID,
		OwnerID:                v.OwnerID,
		Lines:                  lines,
		TotalQuantity:          v.TotalQuantity,
		EstimatedSubtotalCents: v.EstimatedSubtotalCents,
	}
}
