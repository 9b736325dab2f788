package commands

import (
	"context"
	"encoding/json"
	"log/slog"

	"bookstore/internal/domain/loyalty"
	"bookstore/internal/domain/order"
	"bookstore/internal/infra"
	"bookstore/internal/pkg/claimcode"
	"bookstore/internal/pkg/clock"
	"bookstore/internal/pkg/errs"
	"bookstore/internal/usecase/queries"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart               = errs.New("cart is empty")
	ErrInsufficientStock       = errs.New("insufficient stock")
	ErrOrderNotFound           = errs.New("order not found")
	ErrOrderAccessDenied       = errs.New("order access denied")
	ErrOrderTerminal           = errs.New("order is in a terminal state")
	ErrInvalidTransition       = errs.New("invalid status transition")
	ErrInvalidStatus           = errs.New("invalid order status")
	ErrOrderConflict           = errs.New("order modified concurrently")
	ErrClaimCodeExhausted      = errs.New("claim code generation exhausted")
	ErrDomainValidation        = errs.New("domain validation error")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

// claimCodeAttempts bounds the uniqueness probe at checkout. With a 31^8 code
// space collisions are vanishingly rare; hitting the bound means something is
// wrong with the generator, not bad luck.
const claimCodeAttempts = 5

// BookCacheInvalidator drops cached book entries after stock changes. Called
// post-commit, best effort.
type BookCacheInvalidator interface {
	Invalidate(ctx context.Context, bookIDs ...uuid.UUID)
}

type OrderCommands interface {
	PlaceOrder(ctx context.Context, ownerID uuid.UUID, useLoyalty bool) (*queries.OrderView, error)
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, next string) (*queries.OrderView, error)
	VerifyPickup(ctx context.Context, code string) (*queries.OrderView, error)
	CancelOrder(ctx context.Context, actorID uuid.UUID, actorRole string, orderID uuid.UUID) (*queries.OrderView, error)
}

type orderCommandsImpl struct {
	uow         shared.UnitOfWork
	orderReads  queries.OrderReadStore
	invalidator BookCacheInvalidator
	clock       clock.Clock
}

func NewOrderCommands(
	uow shared.UnitOfWork,
	orderReads queries.OrderReadStore,
	invalidator BookCacheInvalidator,
	clk clock.Clock,
) OrderCommands {
	return &orderCommandsImpl{
		uow:         uow,
		orderReads:  orderReads,
		invalidator: invalidator,
		clock:       clk,
	}
}

// PlaceOrder turns the owner's cart into a pending order. Stock reservation,
// pricing, loyalty consumption, claim code assignment and cart clearing all
// commit atomically; a failure on any line aborts the whole checkout.
// useLoyalty opts into spending the oldest unused grant; with no grant on
// hand the flag is a silent no-op.
func (c *orderCommandsImpl) PlaceOrder(ctx context.Context, ownerID uuid.UUID, useLoyalty bool) (*queries.OrderView, error) {
	var (
		orderID uuid.UUID
		bookIDs []uuid.UUID
	)

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		cart, err := tx.Reads().CartByOwner(ctx, ownerID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrEmptyCart
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if len(cart.Lines) == 0 {
			return ErrEmptyCart
		}

		// One clock reading for every line so a discount window cannot open
		// or close halfway through the snapshot.
		now := c.clock.Now()

		lines := make([]order.Line, 0, len(cart.Lines))
		for _, cl := range cart.Lines {
			line, err := order.NewLine(order.BookSpec{
				ID:               cl.BookID,
				Title:            cl.Title,
				Author:           cl.Author,
				PriceCents:       cl.PriceCents,
				DiscountPercent:  cl.DiscountPercent,
				DiscountStartsAt: cl.DiscountStartsAt,
				DiscountEndsAt:   cl.DiscountEndsAt,
			}, cl.Quantity, now)
			if err != nil {
				return errs.Mark(err, ErrDomainValidation)
			}
			lines = append(lines, line)
			bookIDs = append(bookIDs, cl.BookID)

			if err := tx.Books().Reserve(ctx, tx.DB(), cl.BookID, cl.Quantity); err != nil {
				if infra.IsKind(err, infra.KindConflict) {
					return ErrInsufficientStock
				}
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		var grant *shared.GrantSnapshot
		if useLoyalty {
			grant, err = tx.Loyalty().LockOldestUnused(ctx, tx.DB(), ownerID)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}
		var grantSpec *order.GrantSpec
		if grant != nil {
			grantSpec = &order.GrantSpec{ID: grant.ID, Percent: grant.Percent}
		}

		pricing := order.ComputePricing(lines, grantSpec)

		code, err := c.uniqueClaimCode(ctx, tx)
		if err != nil {
			return err
		}

		ord, err := order.NewOrder(ownerID, code, lines, pricing)
		if err != nil {
			return errs.Mark(err, ErrDomainValidation)
		}

		if _, err := tx.Orders().Create(ctx, tx.DB(), ord); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if grant != nil {
			if err := tx.Loyalty().MarkUsed(ctx, tx.DB(), grant.ID, ord.ID(), now); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		if err := tx.Carts().Clear(ctx, tx.DB(), cart.ID); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		orderID = ord.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.notify(ctx, orderTopic(orderID, "order_placed"))
	c.invalidator.Invalidate(ctx, bookIDs...)

	return c.readBack(ctx, orderID)
}

// AdvanceStatus moves an order one or more steps forward on the pickup path.
// Staff only; the route guard enforces the role.
func (c *orderCommandsImpl) AdvanceStatus(ctx context.Context, orderID uuid.UUID, next string) (*queries.OrderView, error) {
	nextStatus, err := order.NewStatus(next)
	if err != nil {
		return nil, ErrInvalidStatus
	}

	var events []orderEvent

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := tx.Reads().OrderByID(ctx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		current, err := order.NewStatus(snap.Status)
		if err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if current.IsTerminal() {
			return ErrOrderTerminal
		}
		if !current.CanAdvanceTo(nextStatus) {
			return ErrInvalidTransition
		}

		if err := tx.Orders().UpdateStatus(ctx, tx.DB(), orderID, current, nextStatus); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return ErrOrderConflict
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		events = append(events, orderTopic(orderID, statusEventTopic(nextStatus)))

		if nextStatus == order.StatusCompleted {
			issued, checkpoint, err := c.issueGrantIfEligible(ctx, tx, snap.OwnerID)
			if err != nil {
				return err
			}
			if issued {
				events = append(events, grantTopic(snap.OwnerID, checkpoint))
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	c.notify(ctx, events...)

	return c.readBack(ctx, orderID)
}

// VerifyPickup completes a live order against its claim code at the counter.
// Any non-terminal order qualifies; the claim code itself is the proof of
// entitlement.
func (c *orderCommandsImpl) VerifyPickup(ctx context.Context, code string) (*queries.OrderView, error) {
	if !claimcode.IsWellFormed(code) {
		return nil, ErrOrderNotFound
	}

	var (
		orderID uuid.UUID
		events  []orderEvent
	)

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := tx.Reads().OrderByClaimCode(ctx, code)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		current, err := order.NewStatus(snap.Status)
		if err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if current.IsTerminal() {
			return ErrOrderNotFound
		}

		if err := tx.Orders().UpdateStatus(ctx, tx.DB(), snap.ID, current, order.StatusCompleted); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return ErrOrderConflict
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		events = append(events, orderTopic(snap.ID, "order_completed"))

		issued, checkpoint, err := c.issueGrantIfEligible(ctx, tx, snap.OwnerID)
		if err != nil {
			return err
		}
		if issued {
			events = append(events, grantTopic(snap.OwnerID, checkpoint))
		}

		orderID = snap.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.notify(ctx, events...)

	return c.readBack(ctx, orderID)
}

// CancelOrder aborts a live order: stock returns to the shelf and a consumed
// loyalty grant becomes spendable again.
func (c *orderCommandsImpl) CancelOrder(ctx context.Context, actorID uuid.UUID, actorRole string, orderID uuid.UUID) (*queries.OrderView, error) {
	var bookIDs []uuid.UUID

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := tx.Reads().OrderByID(ctx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrOrderNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if snap.OwnerID != actorID && !isStaffRole(actorRole) {
			// Customers cannot learn about other customers' orders
			return ErrOrderNotFound
		}

		current, err := order.NewStatus(snap.Status)
		if err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if !current.CanCancel() {
			return ErrOrderTerminal
		}

		if err := tx.Orders().UpdateStatus(ctx, tx.DB(), orderID, current, order.StatusCancelled); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return ErrOrderConflict
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		for _, item := range snap.Items {
			if err := tx.Books().Release(ctx, tx.DB(), item.BookID, item.Quantity); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		if snap.LoyaltyGrantID != nil {
			if err := tx.Loyalty().Restore(ctx, tx.DB(), *snap.LoyaltyGrantID, orderID); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		bookIDs = make([]uuid.UUID, len(snap.Items))
		for i, item := range snap.Items {
			bookIDs[i] = item.BookID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.notify(ctx, orderTopic(orderID, "order_cancelled"))
	c.invalidator.Invalidate(ctx, bookIDs...)

	return c.readBack(ctx, orderID)
}

func (c *orderCommandsImpl) uniqueClaimCode(ctx context.Context, tx shared.Tx) (string, error) {
	for range claimCodeAttempts {
		code, err := claimcode.Generate()
		if err != nil {
			return "", errs.Mark(err, ErrClaimCodeExhausted)
		}

		inUse, err := tx.Reads().ClaimCodeInUse(ctx, code)
		if err != nil {
			return "", errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrClaimCodeExhausted
}

// issueGrantIfEligible issues a loyalty grant when the owner's completed order
// count crosses a multiple of the grant interval. The advisory lock serializes
// concurrent completions for one owner so the count is read race-free, and the
// checkpoint column makes a replayed completion a no-op. Returns whether a
// grant was issued and at which checkpoint.
func (c *orderCommandsImpl) issueGrantIfEligible(ctx context.Context, tx shared.Tx, ownerID uuid.UUID) (bool, int64, error) {
	_, err := tx.DB().Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", ownerID)
	if err != nil {
		return false, 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	count, err := tx.Reads().CompletedOrderCount(ctx, ownerID)
	if err != nil {
		return false, 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if !loyalty.EligibleCheckpoint(count) {
		return false, 0, nil
	}

	issued, err := tx.Loyalty().IssueAtCheckpoint(ctx, tx.DB(), ownerID, count)
	if err != nil {
		return false, 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if issued {
		slog.Info("loyalty grant issued", "owner_id", ownerID, "checkpoint", count)
	}
	return issued, count, nil
}

// orderEvent is a notification job written after the order transaction commits.
type orderEvent struct {
	topic   string
	payload map[string]any
}

func orderTopic(orderID uuid.UUID, topic string) orderEvent {
	return orderEvent{topic: topic, payload: map[string]any{"order_id": orderID, "type": topic}}
}

func grantTopic(ownerID uuid.UUID, checkpoint int64) orderEvent {
	return orderEvent{topic: "loyalty_granted", payload: map[string]any{
		"owner_id":   ownerID,
		"checkpoint": checkpoint,
		"type":       "loyalty_granted",
	}}
}

// notify writes notification jobs best effort, once the order transaction has
// committed. A failed enqueue is logged and swallowed; it never unwinds or
// surfaces an already-committed order transition.
func (c *orderCommandsImpl) notify(ctx context.Context, events ...orderEvent) {
	for _, ev := range events {
		payload, err := json.Marshal(ev.payload)
		if err != nil {
			slog.Error("notification payload marshal failed", "topic", ev.topic, "error", err)
			continue
		}
		err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Notifications().CreateJob(ctx, tx.DB(), "email", ev.topic, payload, c.clock.Now())
		})
		if err != nil {
			slog.Error("notification job enqueue failed", "topic", ev.topic, "error", err)
		}
	}
}

func (c *orderCommandsImpl) readBack(ctx context.Context, orderID uuid.UUID) (*queries.OrderView, error) {
	view, err := c.orderReads.FindByID(ctx, orderID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return view, nil
}

func statusEventTopic(s order.Status) string {
	switch s {
	case order.StatusConfirmed:
		return "order_confirmed"
	case order.StatusReadyForPickup:
		return "order_ready_for_pickup"
	case order.StatusCompleted:
		return "order_completed"
	default:
		return "order_updated"
	}
}

func isStaffRole(role string) bool {
	return role == queries.RoleStaff || role == queries.RoleAdmin
}
