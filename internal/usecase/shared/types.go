package shared

import (
	"time"

	"github.com/google/uuid"
)

type BookSnapshot struct {
	ID                uuid.UUID
	Title             string
	Author            string
	PriceCents        int64
	AvailableQuantity int
	SoldCount         int64
	DiscountPercent   *float64
	DiscountStartsAt  *time.Time
	DiscountEndsAt    *time.Time
}

// CartLineSnapshot carries the live book columns alongside the quantity so
// pricing can be frozen from a single consistent read.
type CartLineSnapshot struct {
	BookID           uuid.UUID
	Title            string
	Author           string
	Quantity         int
	PriceCents       int64
	DiscountPercent  *float64
	DiscountStartsAt *time.Time
	DiscountEndsAt   *time.Time
}

type CartSnapshot struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Lines   []CartLineSnapshot
}

type OrderItemSnapshot struct {
	BookID         uuid.UUID
	Title          string
	Author         string
	UnitPriceCents int64
	Quantity       int
	LineTotalCents int64
}

type OrderSnapshot struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Status         string
	ClaimCode      string
	SubtotalCents  int64
	DiscountCents  int64
	TotalCents     int64
	LoyaltyGrantID *uuid.UUID
	Items          []OrderItemSnapshot
	CreatedAt      time.Time
}

type GrantSnapshot struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Percent float64
}

type UserSnapshot struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
}
