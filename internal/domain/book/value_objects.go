package book

import (
	"errors"
	"time"
)

var (
	ErrInvalidPercent = errors.New("discount percent must be between 0 and 100")
	ErrInvalidWindow  = errors.New("discount window start must be before end")
)

// DiscountWindow is a time-boxed percentage discount on a book's base price.
// A window is half-open: active for startsAt <= t < endsAt.
type DiscountWindow struct {
	percent  float64
	startsAt time.Time
	endsAt   time.Time
}

func NewDiscountWindow(percent float64, startsAt, endsAt time.Time) (*DiscountWindow, error) {
	if percent <= 0 || percent > 100 {
		return nil, ErrInvalidPercent
	}
	if !startsAt.Before(endsAt) {
		return nil, ErrInvalidWindow
	}
	return &DiscountWindow{percent: percent, startsAt: startsAt, endsAt: endsAt}, nil
}

func (w *DiscountWindow) ActiveAt(t time.Time) bool {
	return !t.Before(w.startsAt) && t.Before(w.endsAt)
}

func (w *DiscountWindow) Apply(priceCents int64) int64 {
	discounted := int64(float64(priceCents) * (100.0 - w.percent) / 100.0)
	if discounted < 0 {
		return 0
	}
	return discounted
}

func (w *DiscountWindow) Percent() float64    { return w.percent }
func (w *DiscountWindow) StartsAt() time.Time { return w.startsAt }
func (w *DiscountWindow) EndsAt() time.Time   { return w.endsAt }
