package readstore

import (
	"context"

	"bookstore/internal/infra"
	"bookstore/internal/infra/db"
	"bookstore/internal/pkg/pgconv"
	"bookstore/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type LoyaltyReadStore struct {
	db db.DBTX
}

func NewLoyaltyReadStore(dbtx db.DBTX) *LoyaltyReadStore {
	return &LoyaltyReadStore{db: dbtx}
}

const countCompletedOrdersSQL = `
SELECT COUNT(*) FROM orders WHERE owner_id = $1 AND status = 'completed'
`

func (r *LoyaltyReadStore) CountCompletedOrders(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countCompletedOrdersSQL, ownerID).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count completed orders", err)
	}
	return count, nil
}

const countAvailableGrantsSQL = `
SELECT COUNT(*) FROM loyalty_grants WHERE owner_id = $1 AND used_on_order_id IS NULL
`

func (r *LoyaltyReadStore) CountAvailableGrants(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countAvailableGrantsSQL, ownerID).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count available grants", err)
	}
	return count, nil
}

const findGrantsByOwnerSQL = `
SELECT id, percent, used_on_order_id, used_at, created_at
FROM loyalty_grants
WHERE owner_id = $1
ORDER BY created_at, id
`

func (r *LoyaltyReadStore) FindGrantsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*queries.GrantView, error) {
	rows, err := r.db.Query(ctx, findGrantsByOwnerSQL, ownerID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find loyalty grants", err)
	}
	defer rows.Close()

	result := make([]*queries.GrantView, 0)
	for rows.Next() {
		var (
			view      queries.GrantView
			percent   pgtype.Numeric
			orderID   pgtype.UUID
			usedAt    pgtype.Timestamptz
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&view.ID, &percent, &orderID, &usedAt, &createdAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan loyalty grant row", err)
		}

		p, err := pgconv.Float64PtrFromNumeric(percent)
		if err != nil || p == nil {
			return nil, infra.WrapRepoErr("invalid loyalty grant percent", err)
		}
		view.Percent = *p
		view.UsedOnOrderID = pgconv.UUIDPtrFromPgtype(orderID)
		view.UsedAt = pgconv.TimePtrFromPgtype(usedAt)
		view.CreatedAt = pgconv.TimeFromPgtype(createdAt)

		result = append(result, &view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate loyalty grant rows", err)
	}
	return result, nil
}
