package commands

import (
	"context"
	"errors"

	"bookstore/internal/domain/review"
	"bookstore/internal/infra"
	"bookstore/internal/pkg/errs"
	"bookstore/internal/usecase/queries"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrReviewNotEligible = errs.New("reviews require a completed order containing the book")
	ErrReviewDuplicate   = errs.New("book already reviewed by this customer")
	ErrInvalidReview     = errs.New("invalid review")
)

type ReviewCommands interface {
	CreateReview(ctx context.Context, ownerID, bookID uuid.UUID, rating int, comment string) (*queries.ReviewView, error)
}

type reviewCommandsImpl struct {
	uow         shared.UnitOfWork
	reviewReads queries.ReviewReadStore
}

func NewReviewCommands(uow shared.UnitOfWork, reviewReads queries.ReviewReadStore) ReviewCommands {
	return &reviewCommandsImpl{uow: uow, reviewReads: reviewReads}
}

// purchaseChecker gates review creation on a completed order containing the
// book, evaluated inside the same transaction as the insert.
type purchaseChecker struct {
	ctx   context.Context
	reads shared.CommandReads
}

func (p purchaseChecker) CanReview(ownerID, bookID uuid.UUID) error {
	has, err := p.reads.HasCompletedOrderWithBook(p.ctx, ownerID, bookID)
	if err != nil {
		return err
	}
	if !has {
		return review.ErrNotEligible
	}
	return nil
}

func (c *reviewCommandsImpl) CreateReview(ctx context.Context, ownerID, bookID uuid.UUID, rating int, comment string) (*queries.ReviewView, error) {
	ratingVO, err := review.NewRating(rating)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidReview)
	}
	commentVO, err := review.NewComment(comment)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidReview)
	}

	var reviewID uuid.UUID
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if _, err := tx.Reads().BookByID(ctx, bookID); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrBookNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		entity, err := review.NewReview(purchaseChecker{ctx: ctx, reads: tx.Reads()}, ownerID, bookID, ratingVO, commentVO)
		if err != nil {
			if errors.Is(err, review.ErrNotEligible) {
				return ErrReviewNotEligible
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if _, err := tx.Reviews().Create(ctx, tx.DB(), entity); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return ErrReviewDuplicate
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		reviewID = entity.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := c.reviewReads.FindByID(ctx, reviewID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return view, nil
}
