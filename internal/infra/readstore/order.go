package readstore

import (
	"context"
	"time"

	"bookstore/internal/infra"
	"bookstore/internal/infra/db"
	"bookstore/internal/pkg/pgconv"
	"bookstore/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(dbtx db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: dbtx}
}

const findOrderByIDSQL = `
SELECT o.id, o.owner_id, u.email, o.status, o.claim_code,
       o.subtotal_cents, o.discount_cents, o.total_cents,
       o.bulk_applied, o.loyalty_applied, o.loyalty_grant_id,
       o.created_at, o.updated_at
FROM orders o
JOIN users u ON u.id = o.owner_id
WHERE o.id = $1
`

func (r *OrderReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	return r.findOne(ctx, findOrderByIDSQL, id)
}

// Claim codes are only unique among live orders, so the lookup ignores
// completed and cancelled ones.
const findOrderByClaimCodeSQL = `
SELECT o.id, o.owner_id, u.email, o.status, o.claim_code,
       o.subtotal_cents, o.discount_cents, o.total_cents,
       o.bulk_applied, o.loyalty_applied, o.loyalty_grant_id,
       o.created_at, o.updated_at
FROM orders o
JOIN users u ON u.id = o.owner_id
WHERE o.claim_code = $1 AND o.status NOT IN ('completed', 'cancelled')
`

func (r *OrderReadStore) FindByClaimCode(ctx context.Context, code string) (*queries.OrderView, error) {
	return r.findOne(ctx, findOrderByClaimCodeSQL, code)
}

func (r *OrderReadStore) findOne(ctx context.Context, sql string, arg any) (*queries.OrderView, error) {
	var (
		view      queries.OrderView
		grantID   pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, sql, arg).Scan(
		&view.ID, &view.OwnerID, &view.OwnerEmail, &view.Status, &view.ClaimCode,
		&view.SubtotalCents, &view.DiscountCents, &view.TotalCents,
		&view.BulkApplied, &view.LoyaltyApplied, &grantID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order", err)
	}

	view.LoyaltyGrantID = pgconv.UUIDPtrFromPgtype(grantID)
	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)

	items, err := r.findItems(ctx, view.ID)
	if err != nil {
		return nil, err
	}
	view.Items = items

	return &view, nil
}

const findOrderItemsSQL = `
SELECT book_id, title, author, unit_price_cents, discounted_unit_price_cents,
       quantity, subtotal_cents
FROM order_items
WHERE order_id = $1
ORDER BY title, book_id
`

func (r *OrderReadStore) findItems(ctx context.Context, orderID uuid.UUID) ([]queries.OrderItemView, error) {
	rows, err := r.db.Query(ctx, findOrderItemsSQL, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find order items", err)
	}
	defer rows.Close()

	items := make([]queries.OrderItemView, 0)
	for rows.Next() {
		var (
			item       queries.OrderItemView
			discounted pgtype.Int8
		)
		err := rows.Scan(
			&item.BookID, &item.Title, &item.Author, &item.UnitPriceCents,
			&discounted, &item.Quantity, &item.SubtotalCents,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan order item row", err)
		}
		item.DiscountedUnitPriceCents = pgconv.Int64PtrFromPgtype(discounted)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order item rows", err)
	}
	return items, nil
}

const claimCodeInUseSQL = `
SELECT EXISTS (
    SELECT 1 FROM orders
    WHERE claim_code = $1 AND status NOT IN ('completed', 'cancelled')
)
`

func (r *OrderReadStore) ClaimCodeInUse(ctx context.Context, code string) (bool, error) {
	var inUse bool
	if err := r.db.QueryRow(ctx, claimCodeInUseSQL, code).Scan(&inUse); err != nil {
		return false, infra.WrapRepoErr("failed to check claim code", err)
	}
	return inUse, nil
}

const hasCompletedOrderWithBookSQL = `
SELECT EXISTS (
    SELECT 1
    FROM orders o
    JOIN order_items i ON i.order_id = o.id
    WHERE o.owner_id = $1 AND i.book_id = $2 AND o.status = 'completed'
)
`

func (r *OrderReadStore) HasCompletedOrderWithBook(ctx context.Context, ownerID, bookID uuid.UUID) (bool, error) {
	var has bool
	if err := r.db.QueryRow(ctx, hasCompletedOrderWithBookSQL, ownerID, bookID).Scan(&has); err != nil {
		return false, infra.WrapRepoErr("failed to check purchase history", err)
	}
	return has, nil
}

const findOrdersByOwnerFirstPageSQL = `
SELECT o.id, o.status, o.total_cents,
       (SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id) AS item_count,
       o.created_at
FROM orders o
WHERE o.owner_id = $1
ORDER BY o.created_at DESC, o.id DESC
LIMIT $2
`

func (r *OrderReadStore) FindByOwnerFirstPage(ctx context.Context, ownerID uuid.UUID, limit int32) ([]*queries.OrderListItem, error) {
	rows, err := r.db.Query(ctx, findOrdersByOwnerFirstPageSQL, ownerID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find orders first page", err)
	}
	defer rows.Close()

	return scanOrderListItems(rows)
}

const findOrdersByOwnerKeysetSQL = `
SELECT o.id, o.status, o.total_cents,
       (SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id) AS item_count,
       o.created_at
FROM orders o
WHERE o.owner_id = $1 AND (o.created_at, o.id) < ($2, $3)
ORDER BY o.created_at DESC, o.id DESC
LIMIT $4
`

func (r *OrderReadStore) FindByOwnerKeyset(ctx context.Context, ownerID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.OrderListItem, error) {
	rows, err := r.db.Query(ctx, findOrdersByOwnerKeysetSQL, ownerID, pgconv.TimeToPgtype(lastCreatedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find orders keyset", err)
	}
	defer rows.Close()

	return scanOrderListItems(rows)
}

func scanOrderListItems(rows pgx.Rows) ([]*queries.OrderListItem, error) {
	result := make([]*queries.OrderListItem, 0)
	for rows.Next() {
		var (
			item      queries.OrderListItem
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.Status, &item.TotalCents, &item.ItemCount, &createdAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order row", err)
		}
		item.CreatedAt = pgconv.TimeFromPgtype(createdAt)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order rows", err)
	}
	return result, nil
}
