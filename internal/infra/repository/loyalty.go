package repository

import (
	"context"
	"time"

	"bookstore/internal/domain/loyalty"
	"bookstore/internal/infra"
	"bookstore/internal/infra/db"
	"bookstore/internal/pkg/pgconv"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type LoyaltyRepository struct {
	db db.DBTX
}

func NewLoyaltyRepository(dbtx db.DBTX) *LoyaltyRepository {
	return &LoyaltyRepository{db: dbtx}
}

// SKIP LOCKED lets two concurrent checkouts by the same owner each grab a
// different grant instead of one blocking on the other's row lock.
const lockOldestUnusedGrantSQL = `
SELECT id, owner_id, percent
FROM loyalty_grants
WHERE owner_id = $1 AND used_on_order_id IS NULL
ORDER BY created_at, id
LIMIT 1
FOR UPDATE SKIP LOCKED
`

func (r *LoyaltyRepository) LockOldestUnused(ctx context.Context, tx db.DBTX, ownerID uuid.UUID) (*shared.GrantSnapshot, error) {
	var (
		snap    shared.GrantSnapshot
		percent pgtype.Numeric
	)
	err := tx.QueryRow(ctx, lockOldestUnusedGrantSQL, ownerID).Scan(&snap.ID, &snap.OwnerID, &percent)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to lock loyalty grant", err)
	}

	p, err := pgconv.Float64PtrFromNumeric(percent)
	if err != nil || p == nil {
		return nil, infra.WrapRepoErr("invalid loyalty grant percent", err)
	}
	snap.Percent = *p

	return &snap, nil
}

const markGrantUsedSQL = `
UPDATE loyalty_grants
SET used_on_order_id = $2, used_at = $3
WHERE id = $1 AND used_on_order_id IS NULL
`

func (r *LoyaltyRepository) MarkUsed(ctx context.Context, tx db.DBTX, grantID, orderID uuid.UUID, at time.Time) error {
	tag, err := tx.Exec(ctx, markGrantUsedSQL, grantID, orderID, pgconv.TimeToPgtype(at))
	if err != nil {
		return infra.WrapRepoErr("failed to mark loyalty grant used", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("loyalty grant already consumed", nil, infra.KindConflict)
	}
	return nil
}

const restoreGrantSQL = `
UPDATE loyalty_grants
SET used_on_order_id = NULL, used_at = NULL
WHERE id = $1 AND used_on_order_id = $2
`

func (r *LoyaltyRepository) Restore(ctx context.Context, tx db.DBTX, grantID, orderID uuid.UUID) error {
	tag, err := tx.Exec(ctx, restoreGrantSQL, grantID, orderID)
	if err != nil {
		return infra.WrapRepoErr("failed to restore loyalty grant", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("loyalty grant not consumed by this order", nil, infra.KindConflict)
	}
	return nil
}

// The partial unique index on (owner_id, source_checkpoint) makes issuance
// idempotent: replaying the same checkpoint inserts nothing.
const issueGrantSQL = `
INSERT INTO loyalty_grants (id, owner_id, percent, source_checkpoint)
VALUES ($1, $2, $3, $4)
ON CONFLICT (owner_id, source_checkpoint) WHERE source_checkpoint IS NOT NULL DO NOTHING
`

func (r *LoyaltyRepository) IssueAtCheckpoint(ctx context.Context, tx db.DBTX, ownerID uuid.UUID, checkpoint int64) (bool, error) {
	g := loyalty.NewGrant(ownerID, checkpoint)
	percent := g.Percent()
	tag, err := tx.Exec(ctx, issueGrantSQL, g.ID(), g.OwnerID(), pgconv.Float64PtrToNumeric(&percent), g.SourceCheckpoint())
	if err != nil {
		return false, infra.WrapRepoErr("failed to issue loyalty grant", err)
	}
	return tag.RowsAffected() > 0, nil
}
