package response

import (
	"time"

	"bookstore/internal/usecase/queries"

	"github.com/google/uuid"
)

type LoyaltyStatusResponse struct {
	CompletedOrders      int64 `json:"completed_orders"`
	AvailableGrants      int64 `json:"available_grants"`
	OrdersUntilNextGrant int64 `json:"orders_until_next_grant"`
}

func FromLoyaltyStatus(v *queries.LoyaltyStatusView) *LoyaltyStatusResponse {
	return &LoyaltyStatusResponse{
		CompletedOrders:      v.CompletedOrders,
		AvailableGrants:      v.AvailableGrants,
		OrdersUntilNextGrant: v.OrdersUntilNextGrant,
	}
}

type LoyaltyEligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

type GrantResponse struct {
	ID            uuid.UUID  `json:"id"`
	Percent       float64    `json:"percent"`
	UsedOnOrderID *uuid.UUID `json:"used_on_order_id,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func FromGrantList(items []*queries.GrantView) []*GrantResponse {
	res := make([]*GrantResponse, len(items))
	for i, g := range items {
		res[i] = &GrantResponse{
			ID:            g.ID,
			Percent:       g.Percent,
			UsedOnOrderID: g.UsedOnOrderID,
			UsedAt:        g.UsedAt,
			CreatedAt:     g.CreatedAt,
		}
	}
	return res
}
