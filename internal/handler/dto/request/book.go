package request

import (
	"time"
)

type CreateBookRequest struct {
	Title             string     `json:"title" binding:"required,max=500"`
	Author            string     `json:"author" binding:"required,max=200"`
	PriceCents        int64      `json:"price_cents" binding:"required,min=1"`
	AvailableQuantity int        `json:"available_quantity" binding:"min=0"`
	DiscountPercent   *float64   `json:"discount_percent,omitempty" binding:"omitempty,gt=0,lte=100"`
	DiscountStartsAt  *time.Time `json:"discount_starts_at,omitempty"`
	DiscountEndsAt    *time.Time `json:"discount_ends_at,omitempty"`
}
