package book

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrEmptyTitle       = errors.New("title cannot be empty")
)

type Book struct {
	id                uuid.UUID
	title             string
	author            string
	priceCents        int64
	discount          *DiscountWindow
	availableQuantity int
	soldCount         int
	createdAt         time.Time
	updatedAt         time.Time
}

func NewBook(title, author string, priceCents int64, availableQuantity int, discount *DiscountWindow) (*Book, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if priceCents < 0 {
		return nil, ErrNegativePrice
	}
	if availableQuantity < 0 {
		return nil, ErrNegativeQuantity
	}

	return &Book{
		id:                uuid.New(),
		title:             title,
		author:            author,
		priceCents:        priceCents,
		discount:          discount,
		availableQuantity: availableQuantity,
	}, nil
}

func ReconstructBook(
	id uuid.UUID,
	title, author string,
	priceCents int64,
	discount *DiscountWindow,
	availableQuantity, soldCount int,
	createdAt, updatedAt time.Time,
) *Book {
	return &Book{
		id:                id,
		title:             title,
		author:            author,
		priceCents:        priceCents,
		discount:          discount,
		availableQuantity: availableQuantity,
		soldCount:         soldCount,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// EffectivePriceCents returns the unit price at time t, applying the discount
// window when t falls inside it.
func (b *Book) EffectivePriceCents(t time.Time) int64 {
	if b.discount != nil && b.discount.ActiveAt(t) {
		return b.discount.Apply(b.priceCents)
	}
	return b.priceCents
}

func (b *Book) HasActiveDiscount(t time.Time) bool {
	return b.discount != nil && b.discount.ActiveAt(t)
}

func (b *Book) InStock(quantity int) bool {
	return quantity > 0 && b.availableQuantity >= quantity
}

func (b *Book) ID() uuid.UUID             { return b.id }
func (b *Book) Title() string             { return b.title }
func (b *Book) Author() string            { return b.author }
func (b *Book) PriceCents() int64         { return b.priceCents }
func (b *Book) Discount() *DiscountWindow { return b.discount }
func (b *Book) AvailableQuantity() int    { return b.availableQuantity }
func (b *Book) SoldCount() int            { return b.soldCount }
func (b *Book) CreatedAt() time.Time      { return b.createdAt }
func (b *Book) UpdatedAt() time.Time      { return b.updatedAt }
