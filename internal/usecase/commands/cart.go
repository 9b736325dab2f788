package commands

import (
	"context"

	"bookstore/internal/domain/cart"
	"bookstore/internal/infra"
	"bookstore/internal/pkg/errs"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrBookNotFound      = errs.New("book not found")
	ErrCartLineNotFound  = errs.New("cart line not found")
	ErrInvalidCartLine   = errs.New("invalid cart line")
	ErrQuantityOverStock = errs.New("quantity exceeds available stock")
)

type CartCommands interface {
	SetLine(ctx context.Context, ownerID, bookID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, ownerID, bookID uuid.UUID) error
	Clear(ctx context.Context, ownerID uuid.UUID) error
}

type cartCommandsImpl struct {
	uow shared.UnitOfWork
}

func NewCartCommands(uow shared.UnitOfWork) CartCommands {
	return &cartCommandsImpl{uow: uow}
}

// SetLine puts quantity copies of the book in the cart, replacing any prior
// quantity for the same book. The stock check here is advisory; the binding
// check happens at checkout.
func (c *cartCommandsImpl) SetLine(ctx context.Context, ownerID, bookID uuid.UUID, quantity int) error {
	if _, err := cart.NewLine(bookID, quantity); err != nil {
		return errs.Mark(err, ErrInvalidCartLine)
	}

	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		book, err := tx.Reads().BookByID(ctx, bookID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrBookNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if quantity > book.AvailableQuantity {
			return ErrQuantityOverStock
		}

		cartID, err := tx.Carts().EnsureCart(ctx, tx.DB(), ownerID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := tx.Carts().UpsertLine(ctx, tx.DB(), cartID, bookID, quantity); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}

func (c *cartCommandsImpl) RemoveLine(ctx context.Context, ownerID, bookID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		cartID, err := tx.Carts().EnsureCart(ctx, tx.DB(), ownerID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := tx.Carts().RemoveLine(ctx, tx.DB(), cartID, bookID); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrCartLineNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}

func (c *cartCommandsImpl) Clear(ctx context.Context, ownerID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		cartID, err := tx.Carts().EnsureCart(ctx, tx.DB(), ownerID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := tx.Carts().Clear(ctx, tx.DB(), cartID); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}
