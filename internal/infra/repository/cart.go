package repository

import (
	"context"

	"bookstore/internal/infra"
	"bookstore/internal/infra/db"

	"github.com/google/uuid"
)

type CartRepository struct {
	db db.DBTX
}

func NewCartRepository(dbtx db.DBTX) *CartRepository {
	return &CartRepository{db: dbtx}
}

const ensureCartSQL = `
INSERT INTO carts (id, owner_id)
VALUES ($1, $2)
ON CONFLICT (owner_id) DO UPDATE SET updated_at = now()
RETURNING id
`

// EnsureCart returns the owner's cart ID, creating the cart on first use.
func (r *CartRepository) EnsureCart(ctx context.Context, tx db.DBTX, ownerID uuid.UUID) (uuid.UUID, error) {
	var cartID uuid.UUID
	if err := tx.QueryRow(ctx, ensureCartSQL, uuid.New(), ownerID).Scan(&cartID); err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to ensure cart", err)
	}
	return cartID, nil
}

const upsertCartLineSQL = `
INSERT INTO cart_items (cart_id, book_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, book_id) DO UPDATE SET quantity = EXCLUDED.quantity
`

func (r *CartRepository) UpsertLine(ctx context.Context, tx db.DBTX, cartID, bookID uuid.UUID, quantity int) error {
	if _, err := tx.Exec(ctx, upsertCartLineSQL, cartID, bookID, quantity); err != nil {
		return infra.WrapRepoErr("failed to upsert cart line", err)
	}
	return nil
}

const removeCartLineSQL = `
DELETE FROM cart_items WHERE cart_id = $1 AND book_id = $2
`

func (r *CartRepository) RemoveLine(ctx context.Context, tx db.DBTX, cartID, bookID uuid.UUID) error {
	tag, err := tx.Exec(ctx, removeCartLineSQL, cartID, bookID)
	if err != nil {
		return infra.WrapRepoErr("failed to remove cart line", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("cart line not found", nil, infra.KindNotFound)
	}
	return nil
}

const clearCartSQL = `
DELETE FROM cart_items WHERE cart_id = $1
`

func (r *CartRepository) Clear(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, clearCartSQL, cartID); err != nil {
		return infra.WrapRepoErr("failed to clear cart", err)
	}
	return nil
}
