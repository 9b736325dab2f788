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

type BookReadStore struct {
	db db.DBTX
}

func NewBookReadStore(dbtx db.DBTX) *BookReadStore {
	return &BookReadStore{db: dbtx}
}

const findBookByIDSQL = `
SELECT id, title, author, price_cents, available_quantity, sold_count,
       discount_percent, discount_starts_at, discount_ends_at, created_at, updated_at
FROM books
WHERE id = $1
`

func (r *BookReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookView, error) {
	var (
		view      queries.BookView
		percent   pgtype.Numeric
		startsAt  pgtype.Timestamptz
		endsAt    pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, findBookByIDSQL, id).Scan(
		&view.ID, &view.Title, &view.Author, &view.PriceCents,
		&view.AvailableQuantity, &view.SoldCount,
		&percent, &startsAt, &endsAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("book not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find book by ID", err)
	}

	view.DiscountPercent, err = pgconv.Float64PtrFromNumeric(percent)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid discount percent", err)
	}
	view.DiscountStartsAt = pgconv.TimePtrFromPgtype(startsAt)
	view.DiscountEndsAt = pgconv.TimePtrFromPgtype(endsAt)
	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)

	return &view, nil
}

const findBooksFirstPageSQL = `
SELECT id, title, author, price_cents, available_quantity,
       discount_percent, discount_starts_at, discount_ends_at, created_at
FROM books
ORDER BY created_at DESC, id DESC
LIMIT $1
`

func (r *BookReadStore) FindFirstPage(ctx context.Context, limit int32) ([]*queries.BookListItem, error) {
	rows, err := r.db.Query(ctx, findBooksFirstPageSQL, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find books first page", err)
	}
	defer rows.Close()

	return scanBookListItems(rows)
}

const findBooksKeysetSQL = `
SELECT id, title, author, price_cents, available_quantity,
       discount_percent, discount_starts_at, discount_ends_at, created_at
FROM books
WHERE (created_at, id) < ($1, $2)
ORDER BY created_at DESC, id DESC
LIMIT $3
`

func (r *BookReadStore) FindKeyset(ctx context.Context, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.BookListItem, error) {
	rows, err := r.db.Query(ctx, findBooksKeysetSQL, pgconv.TimeToPgtype(lastCreatedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find books keyset", err)
	}
	defer rows.Close()

	return scanBookListItems(rows)
}

func scanBookListItems(rows pgx.Rows) ([]*queries.BookListItem, error) {
	result := make([]*queries.BookListItem, 0)
	for rows.Next() {
		var (
			item      queries.BookListItem
			percent   pgtype.Numeric
			startsAt  pgtype.Timestamptz
			endsAt    pgtype.Timestamptz
			createdAt pgtype.Timestamptz
		)
		err := rows.Scan(
			&item.ID, &item.Title, &item.Author, &item.PriceCents, &item.AvailableQuantity,
			&percent, &startsAt, &endsAt, &createdAt,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan book row", err)
		}

		item.DiscountPercent, err = pgconv.Float64PtrFromNumeric(percent)
		if err != nil {
			return nil, infra.WrapRepoErr("invalid discount percent", err)
		}
		item.DiscountStartsAt = pgconv.TimePtrFromPgtype(startsAt)
		item.DiscountEndsAt = pgconv.TimePtrFromPgtype(endsAt)
		item.CreatedAt = pgconv.TimeFromPgtype(createdAt)

		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate book rows", err)
	}
	return result, nil
}
