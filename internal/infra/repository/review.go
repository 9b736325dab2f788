package repository

import (
	"context"

	"bookstore/internal/domain/review"
	"bookstore/internal/infra"
	"bookstore/internal/infra/db"

	"github.com/google/uuid"
)

type ReviewRepository struct {
	db db.DBTX
}

func NewReviewRepository(dbtx db.DBTX) *ReviewRepository {
	return &ReviewRepository{db: dbtx}
}

const createReviewSQL = `
INSERT INTO reviews (id, owner_id, book_id, rating, comment)
VALUES ($1, $2, $3, $4, $5)
`

func (r *ReviewRepository) Create(ctx context.Context, tx db.DBTX, rev *review.Review) (uuid.UUID, error) {
	_, err := tx.Exec(ctx, createReviewSQL,
		rev.ID(),
		rev.OwnerID(),
		rev.BookID(),
		rev.Rating().Value(),
		rev.Comment().Value(),
	)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create review", err)
	}
	return rev.ID(), nil
}
