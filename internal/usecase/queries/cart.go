package queries

import (
	"context"
	"time"

	"bookstore/internal/infra"
	"bookstore/internal/pkg/clock"

	"github.com/google/uuid"
)

type CartLineView struct {
	BookID              uuid.UUID  `json:"book_id"`
	Title               string     `json:"title"`
	Author              string     `json:"author"`
	Quantity            int32      `json:"quantity"`
	PriceCents          int64      `json:"price_cents"`
	EffectivePriceCents int64      `json:"effective_price_cents"`
	DiscountPercent     *float64   `json:"discount_percent,omitempty"`
	DiscountStartsAt    *time.Time `json:"-"`
	DiscountEndsAt      *time.Time `json:"-"`
}

type CartView struct {
	ID                     uuid.UUID      `json:"id"`
	OwnerID                uuid.UUID      `json:"owner_id"`
	Lines                  []CartLineView `json:"lines"`
	TotalQuantity          int32          `json:"total_quantity"`
	EstimatedSubtotalCents int64          `json:"estimated_subtotal_cents"`
}

type CartReadStore interface {
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*CartView, error)
}

type CartQueries interface {
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*CartView, error)
}

type cartQueriesImpl struct {
	repo  CartReadStore
	clock clock.Clock
}

func NewCartQueries(repo CartReadStore, clk clock.Clock) CartQueries {
	return &cartQueriesImpl{repo: repo, clock: clk}
}

// GetByOwner returns the cart with estimated pricing at the current instant.
// The estimate is advisory; checkout re-reads prices inside its transaction.
func (q *cartQueriesImpl) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*CartView, error) {
	view, err := q.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// An absent cart reads as an empty one
			return &CartView{OwnerID: ownerID, Lines: []CartLineView{}}, nil
		}
		return nil, err
	}

	now := q.clock.Now()
	for i := range view.Lines {
		line := &view.Lines[i]
		line.EffectivePriceCents = effectivePrice(line.PriceCents, line.DiscountPercent, line.DiscountStartsAt, line.DiscountEndsAt, now)
		view.TotalQuantity += line.Quantity
		view.EstimatedSubtotalCents += line.EffectivePriceCents * int64(line.Quantity)
	}
	return view, nil
}
