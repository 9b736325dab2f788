package queries

import (
	"context"
	"time"

	"bookstore/internal/domain/loyalty"

	"github.com/google/uuid"
)

type GrantView struct {
	ID            uuid.UUID  `json:"id"`
	Percent       float64    `json:"percent"`
	UsedOnOrderID *uuid.UUID `json:"used_on_order_id,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LoyaltyStatusView answers "how far until my next discount" in one payload.
type LoyaltyStatusView struct {
	CompletedOrders      int64 `json:"completed_orders"`
	AvailableGrants      int64 `json:"available_grants"`
	OrdersUntilNextGrant int64 `json:"orders_until_next_grant"`
}

type LoyaltyReadStore interface {
	CountCompletedOrders(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountAvailableGrants(ctx context.Context, ownerID uuid.UUID) (int64, error)
	FindGrantsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*GrantView, error)
}

type LoyaltyQueries interface {
	GetStatus(ctx context.Context, ownerID uuid.UUID) (*LoyaltyStatusView, error)
	ListGrants(ctx context.Context, ownerID uuid.UUID) ([]*GrantView, error)
	CheckEligibility(ctx context.Context, ownerID uuid.UUID) (bool, error)
}

type loyaltyQueriesImpl struct {
	repo LoyaltyReadStore
}

func NewLoyaltyQueries(repo LoyaltyReadStore) LoyaltyQueries {
	return &loyaltyQueriesImpl{repo: repo}
}

func (q *loyaltyQueriesImpl) GetStatus(ctx context.Context, ownerID uuid.UUID) (*LoyaltyStatusView, error) {
	completed, err := q.repo.CountCompletedOrders(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	available, err := q.repo.CountAvailableGrants(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	remaining := loyalty.CompletedOrdersPerGrant - completed%loyalty.CompletedOrdersPerGrant

	return &LoyaltyStatusView{
		CompletedOrders:      completed,
		AvailableGrants:      available,
		OrdersUntilNextGrant: remaining,
	}, nil
}

func (q *loyaltyQueriesImpl) ListGrants(ctx context.Context, ownerID uuid.UUID) ([]*GrantView, error) {
	return q.repo.FindGrantsByOwner(ctx, ownerID)
}

// CheckEligibility reports whether the owner has at least one unused grant to spend.
func (q *loyaltyQueriesImpl) CheckEligibility(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	available, err := q.repo.CountAvailableGrants(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return available > 0, nil
}
