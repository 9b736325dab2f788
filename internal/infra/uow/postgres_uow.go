package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"bookstore/internal/infra/db"
	"bookstore/internal/infra/readstore"
	"bookstore/internal/infra/repository"
	"bookstore/internal/pkg/errs"
	"bookstore/internal/usecase/queries"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type PostgresUoW struct {
	pool *pgxpool.Pool
}

func NewPostgresUoW(pool *pgxpool.Pool) shared.UnitOfWork {
	return &PostgresUoW{pool: pool}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// Read-only transaction for consistent multi-table snapshots
func (u *PostgresUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return u.runReadOnlyTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (u *PostgresUoW) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, u.pool)
}

func (u *PostgresUoW) CommandReads() shared.CommandReads {
	return &commandReads{dbtx: u.pool}
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	const maxRetries = 3
	base := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		pgxTx, err := u.pool.BeginTx(ctx, options)
		if err != nil {
			return errs.Mark(err, errTransactionBegin)
		}

		tx := &pgTx{dbtx: pgxTx}

		err = fn(ctx, tx)
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = errs.Mark(err, errTransactionCommit)
		}

		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}

		if !shouldRetry(err, attempt, maxRetries) {
			if attempt == maxRetries {
				slog.Error("transaction failed after max retries",
					"attempts", attempt+1,
					"error", err.Error())
				return errs.Mark(err, errMaxRetriesExceeded)
			}
			return err
		}

		waitTime := calculateBackoff(attempt, base)

		slog.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return errMaxRetriesExceeded
}

func (u *PostgresUoW) runReadOnlyTx(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	pgxTx, err := u.pool.BeginTx(ctx, options)
	if err != nil {
		return errs.Mark(err, errTransactionBegin)
	}

	defer func() {
		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("failed to rollback read-only transaction", "error", rollbackErr.Error())
			}
		}
	}()

	if err := fn(ctx, pgxTx); err != nil {
		return err
	}

	return pgxTx.Commit(ctx)
}

func shouldRetry(err error, attempt, maxRetries int) bool {
	return isRetryableError(err) && attempt < maxRetries
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fallback to a simple calculation if crypto/rand fails
		return 0
	}
	// Safe conversion: mask high bit to ensure positive int64
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- Intentionally safe conversion after masking
	return int64(uval) % n
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx db.DBTX

	// Lazy-initialized repositories
	bookRepo         shared.BookRepository
	orderRepo        shared.OrderRepository
	cartRepo         shared.CartRepository
	loyaltyRepo      shared.LoyaltyRepository
	reviewRepo       shared.ReviewRepository
	userRepo         shared.UserRepository
	notificationRepo shared.NotificationRepository
	commandReads     shared.CommandReads
}

func (t *pgTx) DB() db.DBTX {
	return t.dbtx
}

func (t *pgTx) Books() shared.BookRepository {
	if t.bookRepo == nil {
		t.bookRepo = repository.NewBookRepository(t.dbtx)
	}
	return t.bookRepo
}

func (t *pgTx) Orders() shared.OrderRepository {
	if t.orderRepo == nil {
		t.orderRepo = repository.NewOrderRepository(t.dbtx)
	}
	return t.orderRepo
}

func (t *pgTx) Carts() shared.CartRepository {
	if t.cartRepo == nil {
		t.cartRepo = repository.NewCartRepository(t.dbtx)
	}
	return t.cartRepo
}

func (t *pgTx) Loyalty() shared.LoyaltyRepository {
	if t.loyaltyRepo == nil {
		t.loyaltyRepo = repository.NewLoyaltyRepository(t.dbtx)
	}
	return t.loyaltyRepo
}

func (t *pgTx) Reviews() shared.ReviewRepository {
	if t.reviewRepo == nil {
		t.reviewRepo = repository.NewReviewRepository(t.dbtx)
	}
	return t.reviewRepo
}

func (t *pgTx) Users() shared.UserRepository {
	if t.userRepo == nil {
		t.userRepo = repository.NewUserRepository(t.dbtx)
	}
	return t.userRepo
}

func (t *pgTx) Notifications() shared.NotificationRepository {
	if t.notificationRepo == nil {
		t.notificationRepo = repository.NewNotificationRepository(t.dbtx)
	}
	return t.notificationRepo
}

func (t *pgTx) Reads() shared.CommandReads {
	if t.commandReads == nil {
		t.commandReads = &commandReads{dbtx: t.dbtx}
	}
	return t.commandReads
}

type commandReads struct {
	dbtx db.DBTX

	// Lazy-initialized readstores
	bookStore    *readstore.BookReadStore
	cartStore    *readstore.CartReadStore
	orderStore   *readstore.OrderReadStore
	loyaltyStore *readstore.LoyaltyReadStore
	userStore    *readstore.UserReadStore
}

func (r *commandReads) books() *readstore.BookReadStore {
	if r.bookStore == nil {
		r.bookStore = readstore.NewBookReadStore(r.dbtx)
	}
	return r.bookStore
}

func (r *commandReads) carts() *readstore.CartReadStore {
	if r.cartStore == nil {
		r.cartStore = readstore.NewCartReadStore(r.dbtx)
	}
	return r.cartStore
}

func (r *commandReads) orders() *readstore.OrderReadStore {
	if r.orderStore == nil {
		r.orderStore = readstore.NewOrderReadStore(r.dbtx)
	}
	return r.orderStore
}

func (r *commandReads) loyalty() *readstore.LoyaltyReadStore {
	if r.loyaltyStore == nil {
		r.loyaltyStore = readstore.NewLoyaltyReadStore(r.dbtx)
	}
	return r.loyaltyStore
}

func (r *commandReads) users() *readstore.UserReadStore {
	if r.userStore == nil {
		r.userStore = readstore.NewUserReadStore(r.dbtx)
	}
	return r.userStore
}

func (r *commandReads) BookByID(ctx context.Context, id uuid.UUID) (*shared.BookSnapshot, error) {
	view, err := r.books().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &shared.BookSnapshot{
		ID:                view.ID,
		Title:             view.Title,
		Author:            view.Author,
		PriceCents:        view.PriceCents,
		AvailableQuantity: int(view.AvailableQuantity),
		SoldCount:         view.SoldCount,
		DiscountPercent:   view.DiscountPercent,
		DiscountStartsAt:  view.DiscountStartsAt,
		DiscountEndsAt:    view.DiscountEndsAt,
	}, nil
}

func (r *commandReads) CartByOwner(ctx context.Context, ownerID uuid.UUID) (*shared.CartSnapshot, error) {
	view, err := r.carts().FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	snapshot := &shared.CartSnapshot{
		ID:      view.ID,
		OwnerID: view.OwnerID,
		Lines:   make([]shared.CartLineSnapshot, len(view.Lines)),
	}
	for i, line := range view.Lines {
		snapshot.Lines[i] = shared.CartLineSnapshot{
			BookID:           line.BookID,
			Title:            line.Title,
			Author:           line.Author,
			Quantity:         int(line.Quantity),
			PriceCents:       line.PriceCents,
			DiscountPercent:  line.DiscountPercent,
			DiscountStartsAt: line.DiscountStartsAt,
			DiscountEndsAt:   line.DiscountEndsAt,
		}
	}
	return snapshot, nil
}

func (r *commandReads) OrderByID(ctx context.Context, id uuid.UUID) (*shared.OrderSnapshot, error) {
	view, err := r.orders().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return orderViewToSnapshot(view), nil
}

func (r *commandReads) OrderByClaimCode(ctx context.Context, code string) (*shared.OrderSnapshot, error) {
	view, err := r.orders().FindByClaimCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return orderViewToSnapshot(view), nil
}

func (r *commandReads) ClaimCodeInUse(ctx context.Context, code string) (bool, error) {
	return r.orders().ClaimCodeInUse(ctx, code)
}

func (r *commandReads) CompletedOrderCount(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return r.loyalty().CountCompletedOrders(ctx, ownerID)
}

func (r *commandReads) HasCompletedOrderWithBook(ctx context.Context, ownerID, bookID uuid.UUID) (bool, error) {
	return r.orders().HasCompletedOrderWithBook(ctx, ownerID, bookID)
}

func (r *commandReads) UserByEmail(ctx context.Context, email string) (*shared.UserSnapshot, error) {
	view, hash, err := r.users().FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &shared.UserSnapshot{
		ID:           view.ID,
		Email:        view.Email,
		PasswordHash: hash,
		Role:         view.Role,
		IsActive:     view.IsActive,
	}, nil
}

func orderViewToSnapshot(view *queries.OrderView) *shared.OrderSnapshot {
	snapshot := &shared.OrderSnapshot{
		ID:             view.ID,
		OwnerID:        view.OwnerID,
		Status:         view.Status,
		ClaimCode:      view.ClaimCode,
		SubtotalCents:  view.SubtotalCents,
		DiscountCents:  view.DiscountCents,
		TotalCents:     view.TotalCents,
		LoyaltyGrantID: view.LoyaltyGrantID,
		CreatedAt:      view.CreatedAt,
		Items:          make([]shared.OrderItemSnapshot, len(view.Items)),
	}
	for i, item := range view.Items {
		snapshot.Items[i] = shared.OrderItemSnapshot{
			BookID:         item.BookID,
			Title:          item.Title,
			Author:         item.Author,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       int(item.Quantity),
			LineTotalCents: item.SubtotalCents,
		}
	}
	return snapshot
}
