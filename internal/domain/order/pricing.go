package order

import "github.com/google/uuid"

const (
	// BulkThresholdQuantity triggers the bulk discount when the total quantity
	// across all lines reaches it.
	BulkThresholdQuantity = 5
	BulkPercent           = 5.0
)

// GrantSpec is the slice of a loyalty grant the pricing needs.
type GrantSpec struct {
	ID      uuid.UUID
	Percent float64
}

type Pricing struct {
	SubtotalCents  int64
	DiscountCents  int64
	TotalCents     int64
	BulkApplied    bool
	LoyaltyApplied bool
	LoyaltyGrantID *uuid.UUID
}

// ComputePricing sums line subtotals and applies the two discount mechanisms.
// Both are percentages of the subtotal and are summed, never compounded:
// subtotal 10000 with bulk + loyalty yields 10000 - 500 - 1000, not
// 10000 * 0.95 * 0.90.
func ComputePricing(lines []Line, grant *GrantSpec) Pricing {
	var subtotal int64
	totalQty := 0
	for _, l := range lines {
		subtotal += l.SubtotalCents()
		totalQty += l.Quantity()
	}

	p := Pricing{SubtotalCents: subtotal}

	if totalQty >= BulkThresholdQuantity {
		p.BulkApplied = true
		p.DiscountCents += percentOf(subtotal, BulkPercent)
	}

	if grant != nil {
		p.LoyaltyApplied = true
		id := grant.ID
		p.LoyaltyGrantID = &id
		p.DiscountCents += percentOf(subtotal, grant.Percent)
	}

	p.TotalCents = subtotal - p.DiscountCents
	if p.TotalCents < 0 {
		p.TotalCents = 0
	}
	return p
}

func percentOf(cents int64, percent float64) int64 {
	return int64(float64(cents) * percent / 100.0)
}
