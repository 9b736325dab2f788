package queries

import (
	"context"
	"time"

	"bookstore/internal/infra"
	"bookstore/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errs.New("order not found")
	ErrOrderAccess   = errs.New("order access denied")
)

type OrderItemView struct {
	BookID                   uuid.UUID `json:"book_id"`
	Title                    string    `json:"title"`
	Author                   string    `json:"author"`
	UnitPriceCents           int64     `json:"unit_price_cents"`
	DiscountedUnitPriceCents *int64    `json:"discounted_unit_price_cents,omitempty"`
	Quantity                 int32     `json:"quantity"`
	SubtotalCents            int64     `json:"subtotal_cents"`
}

type OrderView struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	OwnerEmail     string          `json:"owner_email"`
	Status         string          `json:"status"`
	ClaimCode      string          `json:"claim_code"`
	SubtotalCents  int64           `json:"subtotal_cents"`
	DiscountCents  int64           `json:"discount_cents"`
	TotalCents     int64           `json:"total_cents"`
	BulkApplied    bool            `json:"bulk_applied"`
	LoyaltyApplied bool            `json:"loyalty_applied"`
	LoyaltyGrantID *uuid.UUID      `json:"loyalty_grant_id,omitempty"`
	Items          []OrderItemView `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type OrderListItem struct {
	ID         uuid.UUID `json:"id"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	ItemCount  int32     `json:"item_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type OrderReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	FindByClaimCode(ctx context.Context, code string) (*OrderView, error)
	FindByOwnerFirstPage(ctx context.Context, ownerID uuid.UUID, limit int32) ([]*OrderListItem, error)
	FindByOwnerKeyset(ctx context.Context, ownerID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*OrderListItem, error)
}

type OrderQueries interface {
	GetByID(ctx context.Context, actorID uuid.UUID, actorRole string, id uuid.UUID) (*OrderView, error)
	// GetByClaimCode serves the pickup counter: staff only.
	GetByClaimCode(ctx context.Context, actorRole string, code string) (*OrderView, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, cursor *Cursor, limit int) ([]*OrderListItem, *Cursor, error)
}

type orderQueriesImpl struct {
	repo OrderReadStore
}

func NewOrderQueries(repo OrderReadStore) OrderQueries {
	return &orderQueriesImpl{repo: repo}
}

func (q *orderQueriesImpl) GetByID(ctx context.Context, actorID uuid.UUID, actorRole string, id uuid.UUID) (*OrderView, error) {
	view, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if view.OwnerID != actorID && !isStaff(actorRole) {
		// Existence is not leaked to other customers
		return nil, ErrOrderNotFound
	}

	return view, nil
}

func (q *orderQueriesImpl) GetByClaimCode(ctx context.Context, actorRole string, code string) (*OrderView, error) {
	if !isStaff(actorRole) {
		return nil, ErrOrderAccess
	}

	view, err := q.repo.FindByClaimCode(ctx, code)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return view, nil
}

func (q *orderQueriesImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID, cursor *Cursor, limit int) ([]*OrderListItem, *Cursor, error) {
	limit = ValidateLimit(limit)

	var rows []*OrderListItem
	var err error
	if cursor == nil || cursor.After == "" {
		rows, err = q.repo.FindByOwnerFirstPage(ctx, ownerID, int32(limit+1))
	} else {
		lastCreatedAt, lastID, derr := DecodeAfterCursor(cursor.After)
		if derr != nil {
			return nil, nil, ErrInvalidCursor
		}
		rows, err = q.repo.FindByOwnerKeyset(ctx, ownerID, lastCreatedAt, lastID, int32(limit+1))
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
	return rows, next, nil
}
