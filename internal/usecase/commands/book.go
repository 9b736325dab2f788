package commands

import (
	"context"

	"bookstore/internal/domain/book"
	reqdto "bookstore/internal/handler/dto/request"
	"bookstore/internal/pkg/errs"
	"bookstore/internal/usecase/queries"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
)

var ErrInvalidBook = errs.New("invalid book")

type BookCommands interface {
	CreateBook(ctx context.Context, req reqdto.CreateBookRequest) (*queries.BookView, error)
}

type bookCommandsImpl struct {
	uow       shared.UnitOfWork
	bookReads queries.BookReadStore
}

func NewBookCommands(uow shared.UnitOfWork, bookReads queries.BookReadStore) BookCommands {
	return &bookCommandsImpl{uow: uow, bookReads: bookReads}
}

// CreateBook adds a title to the catalog. Staff only.
func (c *bookCommandsImpl) CreateBook(ctx context.Context, req reqdto.CreateBookRequest) (*queries.BookView, error) {
	var window *book.DiscountWindow
	if req.DiscountPercent != nil {
		if req.DiscountStartsAt == nil || req.DiscountEndsAt == nil {
			return nil, ErrInvalidBook
		}
		w, err := book.NewDiscountWindow(*req.DiscountPercent, *req.DiscountStartsAt, *req.DiscountEndsAt)
		if err != nil {
			return nil, errs.Mark(err, ErrInvalidBook)
		}
		window = w
	}

	entity, err := book.NewBook(req.Title, req.Author, req.PriceCents, req.AvailableQuantity, window)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidBook)
	}

	var bookID uuid.UUID
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		params := shared.CreateBookParams{
			Title:           entity.Title(),
			Author:          entity.Author(),
			PriceCents:      entity.PriceCents(),
			InitialQuantity: entity.AvailableQuantity(),
		}
		if w := entity.Discount(); w != nil {
			percent := w.Percent()
			startsAt := w.StartsAt()
			endsAt := w.EndsAt()
			params.DiscountPercent = &percent
			params.DiscountStartsAt = &startsAt
			params.DiscountEndsAt = &endsAt
		}

		if err := tx.Books().Create(ctx, tx.DB(), entity.ID(), params); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		bookID = entity.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := c.bookReads.FindByID(ctx, bookID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return view, nil
}
