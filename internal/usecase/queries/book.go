package queries

import (
	"context"
	"time"

	"bookstore/internal/infra"
	"bookstore/internal/pkg/clock"
	"bookstore/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrBookNotFound = errs.New("book not found")

type BookView struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Author              string     `json:"author"`
	PriceCents          int64      `json:"price_cents"`
	EffectivePriceCents int64      `json:"effective_price_cents"`
	DiscountPercent     *float64   `json:"discount_percent,omitempty"`
	DiscountStartsAt    *time.Time `json:"discount_starts_at,omitempty"`
	DiscountEndsAt      *time.Time `json:"discount_ends_at,omitempty"`
	AvailableQuantity   int32      `json:"available_quantity"`
	SoldCount           int64      `json:"sold_count"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type BookListItem struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Author              string     `json:"author"`
	PriceCents          int64      `json:"price_cents"`
	EffectivePriceCents int64      `json:"effective_price_cents"`
	DiscountPercent     *float64   `json:"discount_percent,omitempty"`
	DiscountStartsAt    *time.Time `json:"-"`
	DiscountEndsAt      *time.Time `json:"-"`
	AvailableQuantity   int32      `json:"available_quantity"`
	CreatedAt           time.Time  `json:"created_at"`
}

type BookReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BookView, error)
	FindFirstPage(ctx context.Context, limit int32) ([]*BookListItem, error)
	FindKeyset(ctx context.Context, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*BookListItem, error)
}

type BookQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*BookView, error)
	List(ctx context.Context, cursor *Cursor, limit int) ([]*BookListItem, *Cursor, error)
}

type bookQueriesImpl struct {
	repo  BookReadStore
	clock clock.Clock
}

func NewBookQueries(repo BookReadStore, clk clock.Clock) BookQueries {
	return &bookQueriesImpl{repo: repo, clock: clk}
}

func (q *bookQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*BookView, error) {
	view, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	view.EffectivePriceCents = effectivePrice(view.PriceCents, view.DiscountPercent, view.DiscountStartsAt, view.DiscountEndsAt, q.clock.Now())
	return view, nil
}

func (q *bookQueriesImpl) List(ctx context.Context, cursor *Cursor, limit int) ([]*BookListItem, *Cursor, error) {
	limit = ValidateLimit(limit)

	var rows []*BookListItem
	var err error
	if cursor == nil || cursor.After == "" {
		rows, err = q.repo.FindFirstPage(ctx, int32(limit+1))
	} else {
		lastCreatedAt, lastID, derr := DecodeAfterCursor(cursor.After)
		if derr != nil {
			return nil, nil, ErrInvalidCursor
		}
		rows, err = q.repo.FindKeyset(ctx, lastCreatedAt, lastID, int32(limit+1))
	}
	if err != nil {
		return nil, nil, err
	}

	var next *Cursor
	if len(rows) > limit {
		last := rows[limit-1]
		next = &Cursor{After: EncodeAfterCursor(last.CreatedAt, last.ID)}
		rows = rows[:limit]
	}

	now := q.clock.Now()
	for _, row := range rows {
		row.EffectivePriceCents = effectivePrice(row.PriceCents, row.DiscountPercent, row.DiscountStartsAt, row.DiscountEndsAt, now)
	}
	return rows, next, nil
}

// effectivePrice mirrors the checkout snapshot rule: the window is half-open,
// the end instant is already outside it.
func effectivePrice(priceCents int64, percent *float64, startsAt, endsAt *time.Time, now time.Time) int64 {
	if percent == nil || startsAt == nil || endsAt == nil {
		return priceCents
	}
	if now.Before(*startsAt) || !now.Before(*endsAt) {
		return priceCents
	}
	discounted := int64(float64(priceCents) * (100.0 - *percent) / 100.0)
	if discounted < 0 {
		discounted = 0
	}
	return discounted
}
