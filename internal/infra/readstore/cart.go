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

type CartReadStore struct {
	db db.DBTX
}

func NewCartReadStore(dbtx db.DBTX) *CartReadStore {
	return &CartReadStore{db: dbtx}
}

const findCartByOwnerSQL = `
SELECT id FROM carts WHERE owner_id = $1
`

const findCartLinesSQL = `
SELECT ci.book_id, b.title, b.author, ci.quantity, b.price_cents,
       b.discount_percent, b.discount_starts_at, b.discount_ends_at
FROM cart_items ci
JOIN books b ON b.id = ci.book_id
WHERE ci.cart_id = $1
ORDER BY b.title, ci.book_id
`

func (r *CartReadStore) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*queries.CartView, error) {
	var cartID uuid.UUID
	if err := r.db.QueryRow(ctx, findCartByOwnerSQL, ownerID).Scan(&cartID); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("cart not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find cart by owner", err)
	}

	rows, err := r.db.Query(ctx, findCartLinesSQL, cartID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find cart lines", err)
	}
	defer rows.Close()

	view := &queries.CartView{ID: cartID, OwnerID: ownerID, Lines: make([]queries.CartLineView, 0)}
	for rows.Next() {
		var (
			line     queries.CartLineView
			percent  pgtype.Numeric
			startsAt pgtype.Timestamptz
			endsAt   pgtype.Timestamptz
		)
		err := rows.Scan(
			&line.BookID, &line.Title, &line.Author, &line.Quantity, &line.PriceCents,
			&percent, &startsAt, &endsAt,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan cart line row", err)
		}

		line.DiscountPercent, err = pgconv.Float64PtrFromNumeric(percent)
		if err != nil {
			return nil, infra.WrapRepoErr("invalid discount percent", err)
		}
		line.DiscountStartsAt = pgconv.TimePtrFromPgtype(startsAt)
		line.DiscountEndsAt = pgconv.TimePtrFromPgtype(endsAt)

		view.Lines = append(view.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate cart line rows", err)
	}

	return view, nil
}
