package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoLines           = errors.New("order must have at least one line")
	ErrInvalidQuantity   = errors.New("line quantity must be positive")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderTerminal     = errors.New("order is in a terminal state")
	ErrEmptyClaimCode    = errors.New("claim code cannot be empty")
)

type Order struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	claimCode string
	lines     []Line
	pricing   Pricing
	status    Status
	createdAt time.Time
	updatedAt time.Time
}

func NewOrder(ownerID uuid.UUID, claimCode string, lines []Line, pricing Pricing) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if claimCode == "" {
		return nil, ErrEmptyClaimCode
	}

	return &Order{
		id:        uuid.New(),
		ownerID:   ownerID,
		claimCode: claimCode,
		lines:     lines,
		pricing:   pricing,
		status:    StatusPending,
	}, nil
}

// AdvanceTo moves the order strictly forward on the pickup path. Terminal
// states are absorbing; moving backward or sideways is rejected.
func (o *Order) AdvanceTo(next Status) error {
	if o.status.IsTerminal() {
		return ErrOrderTerminal
	}
	if !o.status.CanAdvanceTo(next) {
		return ErrInvalidTransition
	}
	o.status = next
	return nil
}

// Cancel is the only non-forward edge. Rejected once terminal.
func (o *Order) Cancel() error {
	if o.status.IsTerminal() {
		return ErrOrderTerminal
	}
	o.status = StatusCancelled
	return nil
}

func (o *Order) IsTerminal() bool { return o.status.IsTerminal() }

func (o *Order) ID() uuid.UUID { return o.id }
func (o *Order) OwnerID() uuid.UUID { return o.ownerID }
func (o *Order) ClaimCode() string { return o.claimCode }
func (o *Order) Lines() []Line { return o.lines }
func (o *Order) Pricing() Pricing { return o.pricing }
func (o *Order) SubtotalCents() int64 { return o.pricing.SubtotalCents }
func (o *Order) DiscountCents() int64 { return o.pricing.DiscountCents }
func (o *Order) TotalCents() int64 { return o.pricing.TotalCents }
func (o *Order) BulkApplied() bool { return o.pricing.BulkApplied }
func (o *Order) LoyaltyApplied() bool { return o.pricing.LoyaltyApplied }
func (o *Order) LoyaltyGrantID() *uuid.UUID { return o.pricing.LoyaltyGrantID }
func (o *Order) Status() Status { return o.status }
func (o *Order) CreatedAt() time.Time { return o.createdAt }
func (o *Order) UpdatedAt() time.Time { return o.updatedAt }
