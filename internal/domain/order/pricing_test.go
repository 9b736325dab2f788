//go:build unit

package order_test

import (
	"testing"
	"time"

	"bookstore/internal/domain/loyalty"
	"bookstore/internal/domain/order"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linesWith(t *testing.T, unitCents int64, quantities ...int) []order.Line {
	t.Helper()
	lines := make([]order.Line, 0, len(quantities))
	now := time.Now()
	for _, q := range quantities {
		line, err := order.NewLine(order.BookSpec{
			ID:         uuid.New(),
			Title:      "Book",
			PriceCents: unitCents,
		}, q, now)
		require.NoError(t, err)
		lines = append(lines, line)
	}
	return lines
}

func TestComputePricing(t *testing.T) {
	t.Run("no discount below bulk threshold", func(t *testing.T) {
		// $100 subtotal across 4 units
		p := order.ComputePricing(linesWith(t, 2500, 2, 2), nil)
		assert.Equal(t, int64(10000), p.SubtotalCents)
		assert.Equal(t, int64(0), p.DiscountCents)
		assert.Equal(t, int64(10000), p.TotalCents)
		assert.False(t, p.BulkApplied)
		assert.False(t, p.LoyaltyApplied)
	})

	t.Run("bulk discount at 5 units: $100 -> $95", func(t *testing.T) {
		// 6 units, $100 subtotal
		p := order.ComputePricing(linesWith(t, 1667, 3, 3), nil)
		subtotal := p.SubtotalCents
		assert.True(t, p.BulkApplied)
		assert.Equal(t, subtotal*5/100, p.DiscountCents)
		assert.Equal(t, subtotal-subtotal*5/100, p.TotalCents)
	})

	t.Run("bulk threshold is inclusive", func(t *testing.T) {
		p := order.ComputePricing(linesWith(t, 1000, 5), nil)
		assert.True(t, p.BulkApplied)
		p = order.ComputePricing(linesWith(t, 1000, 4), nil)
		assert.False(t, p.BulkApplied)
	})

	t.Run("loyalty only: $100 with 10% grant -> $90", func(t *testing.T) {
		grant := &order.GrantSpec{ID: uuid.New(), Percent: loyalty.GrantPercent}
		p := order.ComputePricing(linesWith(t, 5000, 2), grant)
		assert.Equal(t, int64(10000), p.SubtotalCents)
		assert.Equal(t, int64(1000), p.DiscountCents)
		assert.Equal(t, int64(9000), p.TotalCents)
		assert.False(t, p.BulkApplied)
		assert.True(t, p.LoyaltyApplied)
		require.NotNil(t, p.LoyaltyGrantID)
		assert.Equal(t, grant.ID, *p.LoyaltyGrantID)
	})

	t.Run("discounts are additive on subtotal, not compounded", func(t *testing.T) {
		// $100 subtotal, 5 units, 10% grant: 5% + 10% = $15 off, not
		// 100 * 0.95 * 0.90 = $85.50
		grant := &order.GrantSpec{ID: uuid.New(), Percent: loyalty.GrantPercent}
		p := order.ComputePricing(linesWith(t, 2000, 5), grant)
		assert.Equal(t, int64(10000), p.SubtotalCents)
		assert.Equal(t, int64(1500), p.DiscountCents)
		assert.Equal(t, int64(8500), p.TotalCents)
		assert.True(t, p.BulkApplied)
		assert.True(t, p.LoyaltyApplied)
	})

	t.Run("total never goes negative", func(t *testing.T) {
		grant := &order.GrantSpec{ID: uuid.New(), Percent: 100}
		p := order.ComputePricing(linesWith(t, 100, 5), grant)
		assert.GreaterOrEqual(t, p.TotalCents, int64(0))
	})
}

func TestEligibleCheckpoint(t *testing.T) {
	assert.False(t, loyalty.EligibleCheckpoint(0))
	assert.False(t, loyalty.EligibleCheckpoint(9))
	assert.True(t, loyalty.EligibleCheckpoint(10))
	assert.False(t, loyalty.EligibleCheckpoint(11))
	assert.False(t, loyalty.EligibleCheckpoint(19))
	assert.True(t, loyalty.EligibleCheckpoint(20))
	assert.True(t, loyalty.EligibleCheckpoint(100))
}
