package shared

import (
	"context"
	"time"

	"bookstore/internal/domain/order"
	"bookstore/internal/domain/review"
	"bookstore/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: Read-only transaction for multi-table consistent reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Books() BookRepository
	Orders() OrderRepository
	Carts() CartRepository
	Loyalty() LoyaltyRepository
	Reviews() ReviewRepository
	Users() UserRepository
	Notifications() NotificationRepository
	Reads() CommandReads
	DB() db.DBTX
}

type CommandReads interface {
	BookByID(ctx context.Context, id uuid.UUID) (*BookSnapshot, error)
	CartByOwner(ctx context.Context, ownerID uuid.UUID) (*CartSnapshot, error)
	OrderByID(ctx context.Context, id uuid.UUID) (*OrderSnapshot, error)
	OrderByClaimCode(ctx context.Context, code string) (*OrderSnapshot, error)
	// ClaimCodeInUse reports whether a non-terminal order currently holds the code.
	ClaimCodeInUse(ctx context.Context, code string) (bool, error)
	CompletedOrderCount(ctx context.Context, ownerID uuid.UUID) (int64, error)
	HasCompletedOrderWithBook(ctx context.Context, ownerID, bookID uuid.UUID) (bool, error)
	UserByEmail(ctx context.Context, email string) (*UserSnapshot, error)
}

type BookRepository interface {
	Create(ctx context.Context, tx db.DBTX, bookID uuid.UUID, params CreateBookParams) error
	// Reserve decrements available stock and bumps sold_count in one guarded
	// statement. Zero rows affected surfaces as a CONFLICT repository error.
	Reserve(ctx context.Context, tx db.DBTX, bookID uuid.UUID, quantity int) error
	// Release returns previously reserved stock, e.g. on cancellation.
	Release(ctx context.Context, tx db.DBTX, bookID uuid.UUID, quantity int) error
}

type CreateBookParams struct {
	Title            string
	Author           string
	PriceCents       int64
	InitialQuantity  int
	DiscountPercent  *float64
	DiscountStartsAt *time.Time
	DiscountEndsAt   *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, tx db.DBTX, ord *order.Order) (uuid.UUID, error)
	// UpdateStatus moves the order from one status to another only if it is
	// still in the expected one. Zero rows affected surfaces as CONFLICT.
	UpdateStatus(ctx context.Context, tx db.DBTX, orderID uuid.UUID, from, to order.Status) error
}

type CartRepository interface {
	EnsureCart(ctx context.Context, tx db.DBTX, ownerID uuid.UUID) (uuid.UUID, error)
	UpsertLine(ctx context.Context, tx db.DBTX, cartID, bookID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, tx db.DBTX, cartID, bookID uuid.UUID) error
	Clear(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error
}

type LoyaltyRepository interface {
	// LockOldestUnused picks the owner's oldest unconsumed grant FOR UPDATE
	// SKIP LOCKED. Returns nil when no grant is free.
	LockOldestUnused(ctx context.Context, tx db.DBTX, ownerID uuid.UUID) (*GrantSnapshot, error)
	MarkUsed(ctx context.Context, tx db.DBTX, grantID, orderID uuid.UUID, at time.Time) error
	// Restore frees the grant again, guarded on it having been consumed by
	// the given order.
	Restore(ctx context.Context, tx db.DBTX, grantID, orderID uuid.UUID) error
	// IssueAtCheckpoint inserts a grant keyed by (owner, checkpoint) with
	// ON CONFLICT DO NOTHING. Reports whether a row was actually inserted.
	IssueAtCheckpoint(ctx context.Context, tx db.DBTX, ownerID uuid.UUID, checkpoint int64) (bool, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, tx db.DBTX, rev *review.Review) (uuid.UUID, error)
}

type UserRepository interface {
	Create(ctx context.Context, tx db.DBTX, params CreateUserParams) (uuid.UUID, error)
	UpdateLastLogin(ctx context.Context, tx db.DBTX, userID uuid.UUID) error
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, tx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error
}
