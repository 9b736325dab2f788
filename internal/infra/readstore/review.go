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

type ReviewReadStore struct {
	db db.DBTX
}

func NewReviewReadStore(dbtx db.DBTX) *ReviewReadStore {
	return &ReviewReadStore{db: dbtx}
}

const findReviewByIDSQL = `
SELECT r.id, r.owner_id, u.email, r.book_id, b.title, r.rating, r.comment,
       r.created_at, r.updated_at
FROM reviews r
JOIN users u ON u.id = r.owner_id
JOIN books b ON b.id = r.book_id
WHERE r.id = $1
`

func (r *ReviewReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ReviewView, error) {
	var (
		view      queries.ReviewView
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, findReviewByIDSQL, id).Scan(
		&view.ID, &view.OwnerID, &view.OwnerEmail, &view.BookID, &view.BookTitle,
		&view.Rating, &view.Comment, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("review not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find review by ID", err)
	}

	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return &view, nil
}

const findReviewsByBookFirstPageSQL = `
SELECT r.id, u.email, r.rating, r.comment, r.created_at
FROM reviews r
JOIN users u ON u.id = r.owner_id
WHERE r.book_id = $1
ORDER BY r.created_at DESC, r.id DESC
LIMIT $2
`

func (r *ReviewReadStore) FindByBookFirstPage(ctx context.Context, bookID uuid.UUID, limit int32) ([]*queries.ReviewListItem, error) {
	rows, err := r.db.Query(ctx, findReviewsByBookFirstPageSQL, bookID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reviews first page", err)
	}
	defer rows.Close()

	return scanReviewListItems(rows)
}

const findReviewsByBookKeysetSQL = `
SELECT r.id, u.email, r.rating, r.comment, r.created_at
FROM reviews r
JOIN users u ON u.id = r.owner_id
WHERE r.book_id = $1 AND (r.created_at, r.id) < ($2, $3)
ORDER BY r.created_at DESC, r.id DESC
LIMIT $4
`

func (r *ReviewReadStore) FindByBookKeyset(ctx context.Context, bookID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.ReviewListItem, error) {
	rows, err := r.db.Query(ctx, findReviewsByBookKeysetSQL, bookID, pgconv.TimeToPgtype(lastCreatedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reviews keyset", err)
	}
	defer rows.Close()

	return scanReviewListItems(rows)
}

func scanReviewListItems(rows pgx.Rows) ([]*queries.ReviewListItem, error) {
	result := make([]*queries.ReviewListItem, 0)
	for rows.Next() {
		var (
			item      queries.ReviewListItem
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.OwnerEmail, &item.Rating, &item.Comment, &createdAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan review row", err)
		}
		item.CreatedAt = pgconv.TimeFromPgtype(createdAt)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate review rows", err)
	}
	return result, nil
}

const bookRatingStatsSQL = `
SELECT COUNT(*), COALESCE(AVG(rating), 0)
FROM reviews
WHERE book_id = $1
`

func (r *ReviewReadStore) GetBookRatingStats(ctx context.Context, bookID uuid.UUID) (*queries.BookRatingStats, error) {
	stats := &queries.BookRatingStats{BookID: bookID}
	err := r.db.QueryRow(ctx, bookRatingStatsSQL, bookID).Scan(&stats.TotalReviews, &stats.AverageRating)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get book rating stats", err)
	}
	return stats, nil
}
