package repository

import (
	"context"

	"bookstore/internal/domain/order"
	"bookstore/internal/infra"
	"bookstore/internal/infra/db"
	"bookstore/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(dbtx db.DBTX) *OrderRepository {
	return &OrderRepository{db: dbtx}
}

const createOrderSQL = `
INSERT INTO orders (id, owner_id, status, claim_code, subtotal_cents, discount_cents,
                    total_cents, bulk_applied, loyalty_applied, loyalty_grant_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

const createOrderItemSQL = `
INSERT INTO order_items (order_id, book_id, title, author, unit_price_cents,
                         discounted_unit_price_cents, quantity, subtotal_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *OrderRepository) Create(ctx context.Context, tx db.DBTX, ord *order.Order) (uuid.UUID, error) {
	_, err := tx.Exec(ctx, createOrderSQL,
		ord.ID(),
		ord.OwnerID(),
		string(ord.Status()),
		ord.ClaimCode(),
		ord.SubtotalCents(),
		ord.DiscountCents(),
		ord.TotalCents(),
		ord.BulkApplied(),
		ord.LoyaltyApplied(),
		pgconv.UUIDPtrToPgtype(ord.LoyaltyGrantID()),
	)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create order", err)
	}

	for _, line := range ord.Lines() {
		_, err := tx.Exec(ctx, createOrderItemSQL,
			ord.ID(),
			line.BookID(),
			line.Title(),
			line.Author(),
			line.UnitPriceCents(),
			pgconv.Int64PtrToPgtype(line.DiscountedUnitPriceCents()),
			line.Quantity(),
			line.SubtotalCents(),
		)
		if err != nil {
			return uuid.Nil, infra.WrapRepoErr("failed to create order item", err)
		}
	}

	return ord.ID(), nil
}

// Guarding on the current status makes the transition atomic: a concurrent
// advance or cancel leaves this statement matching no row.
const updateOrderStatusSQL = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
`

func (r *OrderRepository) UpdateStatus(ctx context.Context, tx db.DBTX, orderID uuid.UUID, from, to order.Status) error {
	tag, err := tx.Exec(ctx, updateOrderStatusSQL, orderID, string(from), string(to))
	if err != nil {
		return infra.WrapRepoErr("failed to update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order status changed concurrently", nil, infra.KindConflict)
	}
	return nil
}
