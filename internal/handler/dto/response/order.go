package response

import (
	"time"

	"bookstore/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type OrderItemResponse struct {
	BookID                   uuid.UUID `json:"book_id"`
	Title                    string    `json:"title"`
	Author                   string    `json:"author"`
	UnitPriceCents           int64     `json:"unit_price_cents"`
	DiscountedUnitPriceCents *int64    `json:"discounted_unit_price_cents,omitempty"`
	Quantity                 int32     `json:"quantity"`
	SubtotalCents            int64     `json:"subtotal_cents"`
}

type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OwnerID        uuid.UUID           `json:"owner_id"`
	OwnerEmail     string              `json:"owner_email"`
	Status         string              `json:"status"`
	ClaimCode      string              `json:"claim_code"`
	SubtotalCents  int64               `json:"subtotal_cents"`
	DiscountCents  int64               `json:"discount_cents"`
	TotalCents     int64               `json:"total_cents"`
	BulkApplied    bool                `json:"bulk_applied"`
	LoyaltyApplied bool                `json:"loyalty_applied"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type OrderListItemResponse struct {
	ID         uuid.UUID `json:"id"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	ItemCount  int32     `json:"item_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromOrderView(v *queries.OrderView) *OrderResponse {
	var resp OrderResponse
	// Field names line up with the view; copier handles the nested items too.
	if err := copier.Copy(&resp, v); err != nil {
		return &OrderResponse{ID: v.ID}
	}
	return &resp
}

func FromOrderList(items []*queries.OrderListItem) []*OrderListItemResponse {
	res := make([]*OrderListItemResponse, len(items))
	for i, it := range items {
		res[i] = &OrderListItemResponse{
			ID:         it.ID,
			Status:     it.Status,
			TotalCents: it.TotalCents,
			ItemCount:  it.ItemCount,
			CreatedAt:  it.CreatedAt,
		}
	}
	return res
}
