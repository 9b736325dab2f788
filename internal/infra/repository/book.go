package repository

import (
	"context"

	"bookstore/internal/infra"
	"bookstore/internal/infra/db"
	"bookstore/internal/pkg/pgconv"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
)

type BookRepository struct {
	db db.DBTX
}

func NewBookRepository(dbtx db.DBTX) *BookRepository {
	return &BookRepository{db: dbtx}
}

const createBookSQL = `
INSERT INTO books (id, title, author, price_cents, available_quantity, sold_count,
                   discount_percent, discount_starts_at, discount_ends_at)
VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
`

func (r *BookRepository) Create(ctx context.Context, tx db.DBTX, bookID uuid.UUID, params shared.CreateBookParams) error {
	_, err := tx.Exec(ctx, createBookSQL,
		bookID,
		params.Title,
		params.Author,
		params.PriceCents,
		params.InitialQuantity,
		pgconv.Float64PtrToNumeric(params.DiscountPercent),
		pgconv.TimePtrToPgtype(params.DiscountStartsAt),
		pgconv.TimePtrToPgtype(params.DiscountEndsAt),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create book", err)
	}
	return nil
}

// The WHERE guard makes the decrement atomic: two checkouts racing for the
// last copies never take available_quantity below zero, one of them simply
// matches no row.
const reserveBookSQL = `
UPDATE books
SET available_quantity = available_quantity - $2,
    sold_count = sold_count + $2,
    updated_at = now()
WHERE id = $1 AND available_quantity >= $2
`

func (r *BookRepository) Reserve(ctx context.Context, tx db.DBTX, bookID uuid.UUID, quantity int) error {
	tag, err := tx.Exec(ctx, reserveBookSQL, bookID, quantity)
	if err != nil {
		return infra.WrapRepoErr("failed to reserve book stock", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("insufficient stock", nil, infra.KindConflict)
	}
	return nil
}

const releaseBookSQL = `
UPDATE books
SET available_quantity = available_quantity + $2,
    sold_count = sold_count - $2,
    updated_at = now()
WHERE id = $1
`

func (r *BookRepository) Release(ctx context.Context, tx db.DBTX, bookID uuid.UUID, quantity int) error {
	tag, err := tx.Exec(ctx, releaseBookSQL, bookID, quantity)
	if err != nil {
		return infra.WrapRepoErr("failed to release book stock", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("book not found", nil, infra.KindNotFound)
	}
	return nil
}
