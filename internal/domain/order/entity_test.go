//go:build unit

package order_test

import (
	"testing"
	"time"

	"bookstore/internal/domain/order"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLine(t *testing.T, priceCents int64, qty int) order.Line {
	t.Helper()
	line, err := order.NewLine(order.BookSpec{
		ID:         uuid.New(),
		Title:      "Some Book",
		Author:     "Some Author",
		PriceCents: priceCents,
	}, qty, time.Now())
	require.NoError(t, err)
	return line
}

func TestNewOrder(t *testing.T) {
	lines := []order.Line{makeLine(t, 1000, 1)}
	pricing := order.ComputePricing(lines, nil)

	t.Run("starts pending", func(t *testing.T) {
		o, err := order.NewOrder(uuid.New(), "A2B3C4D5", lines, pricing)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPending, o.Status())
		assert.False(t, o.IsTerminal())
	})

	t.Run("rejects empty lines", func(t *testing.T) {
		_, err := order.NewOrder(uuid.New(), "A2B3C4D5", nil, pricing)
		assert.ErrorIs(t, err, order.ErrNoLines)
	})

	t.Run("rejects empty claim code", func(t *testing.T) {
		_, err := order.NewOrder(uuid.New(), "", lines, pricing)
		assert.ErrorIs(t, err, order.ErrEmptyClaimCode)
	})
}

func TestAdvanceTo(t *testing.T) {
	newOrder := func(t *testing.T) *order.Order {
		t.Helper()
		lines := []order.Line{makeLine(t, 1000, 1)}
		o, err := order.NewOrder(uuid.New(), "A2B3C4D5", lines, order.ComputePricing(lines, nil))
		require.NoError(t, err)
		return o
	}

	t.Run("forward path", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.AdvanceTo(order.StatusConfirmed))
		require.NoError(t, o.AdvanceTo(order.StatusReadyForPickup))
		require.NoError(t, o.AdvanceTo(order.StatusCompleted))
		assert.True(t, o.IsTerminal())
	})

	t.Run("skipping forward is allowed", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.AdvanceTo(order.StatusCompleted))
		assert.Equal(t, order.StatusCompleted, o.Status())
	})

	t.Run("backward is rejected", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.AdvanceTo(order.StatusReadyForPickup))
		err := o.AdvanceTo(order.StatusConfirmed)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
		assert.Equal(t, order.StatusReadyForPickup, o.Status())
	})

	t.Run("same status is rejected", func(t *testing.T) {
		o := newOrder(t)
		assert.ErrorIs(t, o.AdvanceTo(order.StatusPending), order.ErrInvalidTransition)
	})

	t.Run("terminal states are absorbing", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.AdvanceTo(order.StatusCompleted))
		assert.ErrorIs(t, o.AdvanceTo(order.StatusConfirmed), order.ErrOrderTerminal)
		assert.ErrorIs(t, o.Cancel(), order.ErrOrderTerminal)
	})

	t.Run("cancelled cannot advance", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.Cancel())
		assert.ErrorIs(t, o.AdvanceTo(order.StatusConfirmed), order.ErrOrderTerminal)
	})
}

func TestCancel(t *testing.T) {
	for _, from := range []order.Status{order.StatusPending, order.StatusConfirmed, order.StatusReadyForPickup} {
		t.Run("cancellable from "+from.String(), func(t *testing.T) {
			lines := []order.Line{makeLine(t, 1000, 1)}
			o, err := order.NewOrder(uuid.New(), "A2B3C4D5", lines, order.ComputePricing(lines, nil))
			require.NoError(t, err)
			if from != order.StatusPending {
				require.NoError(t, o.AdvanceTo(from))
			}
			require.NoError(t, o.Cancel())
			assert.Equal(t, order.StatusCancelled, o.Status())

			// re-cancelling is rejected and leaves state untouched
			assert.ErrorIs(t, o.Cancel(), order.ErrOrderTerminal)
			assert.Equal(t, order.StatusCancelled, o.Status())
		})
	}
}

func TestLineSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	percent := 50.0
	startsAt := now.AddDate(0, 0, -1)
	endsAt := now.AddDate(0, 0, 1)

	t.Run("freezes discounted price inside window", func(t *testing.T) {
		line, err := order.NewLine(order.BookSpec{
			ID:               uuid.New(),
			Title:            "Sale Book",
			PriceCents:       2000,
			DiscountPercent:  &percent,
			DiscountStartsAt: &startsAt,
			DiscountEndsAt:   &endsAt,
		}, 3, now)
		require.NoError(t, err)

		require.NotNil(t, line.DiscountedUnitPriceCents())
		assert.Equal(t, int64(1000), *line.DiscountedUnitPriceCents())
		assert.Equal(t, int64(2000), line.UnitPriceCents())
		assert.Equal(t, int64(3000), line.SubtotalCents())
	})

	t.Run("window end is exclusive", func(t *testing.T) {
		line, err := order.NewLine(order.BookSpec{
			ID:               uuid.New(),
			Title:            "Sale Book",
			PriceCents:       2000,
			DiscountPercent:  &percent,
			DiscountStartsAt: &startsAt,
			DiscountEndsAt:   &endsAt,
		}, 1, endsAt)
		require.NoError(t, err)
		assert.Nil(t, line.DiscountedUnitPriceCents())
		assert.Equal(t, int64(2000), line.SubtotalCents())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := order.NewLine(order.BookSpec{ID: uuid.New(), PriceCents: 100}, 0, now)
		assert.ErrorIs(t, err, order.ErrInvalidQuantity)
	})
}
