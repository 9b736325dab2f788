package order

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// rank orders the forward path; Cancelled sits outside it.
var rank = map[Status]int{
	StatusPending:        1,
	StatusConfirmed:      2,
	StatusReadyForPickup: 3,
	StatusCompleted:      4,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusReadyForPickup, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanAdvanceTo reports whether next is strictly forward of s on the pickup
// path. Cancellation is not an advance; see CanCancel.
func (s Status) CanAdvanceTo(next Status) bool {
	cur, ok := rank[s]
	if !ok {
		return false
	}
	nxt, ok := rank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

func (s Status) CanCancel() bool {
	return !s.IsTerminal() && s.IsValid()
}

func NewStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}
