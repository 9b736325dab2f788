package order

import (
	"time"

	"github.com/google/uuid"
)

// BookSpec is the slice of catalog state the snapshot needs. It is read once
// at checkout so later catalog edits cannot leak into the order.
type BookSpec struct {
	ID               uuid.UUID
	Title            string
	Author           string
	PriceCents       int64
	DiscountPercent  *float64
	DiscountStartsAt *time.Time
	DiscountEndsAt   *time.Time
}

// discountedUnitPrice returns the unit price under the book's discount window
// at time t, or nil when no discount applies at t.
func (s BookSpec) discountedUnitPrice(t time.Time) *int64 {
	if s.DiscountPercent == nil || s.DiscountStartsAt == nil || s.DiscountEndsAt == nil {
		return nil
	}
	if t.Before(*s.DiscountStartsAt) || !t.Before(*s.DiscountEndsAt) {
		return nil
	}
	price := int64(float64(s.PriceCents) * (100.0 - *s.DiscountPercent) / 100.0)
	if price < 0 {
		price = 0
	}
	return &price
}

// Line is the immutable snapshot of one cart line: title, author and prices
// are frozen at purchase time.
type Line struct {
	bookID                   uuid.UUID
	title                    string
	author                   string
	unitPriceCents           int64
	discountedUnitPriceCents *int64
	quantity                 int
	subtotalCents            int64
}

// NewLine freezes a cart line against the catalog state in spec. All lines of
// one snapshot must share the same clock reading t so a discount window cannot
// open or close halfway through a checkout.
func NewLine(spec BookSpec, quantity int, t time.Time) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}

	effective := spec.PriceCents
	discounted := spec.discountedUnitPrice(t)
	if discounted != nil {
		effective = *discounted
	}

	return Line{
		bookID:                   spec.ID,
		title:                    spec.Title,
		author:                   spec.Author,
		unitPriceCents:           spec.PriceCents,
		discountedUnitPriceCents: discounted,
		quantity:                 quantity,
		subtotalCents:            effective * int64(quantity),
	}, nil
}

func (l Line) BookID() uuid.UUID { return l.bookID }
func (l Line) Title() string { return l.title }
func (l Line) Author() string { return l.author }
func (l Line) UnitPriceCents() int64 { return l.unitPriceCents }
func (l Line) DiscountedUnitPriceCents() *int64 { return l.discountedUnitPriceCents }
func (l Line) Quantity() int { return l.quantity }
func (l Line) SubtotalCents() int64 { return l.subtotalCents }
