package loyalty

import "github.com/google/uuid"

// A grant is earned every CompletedOrdersPerGrant completed orders and takes
// GrantPercent off one order's subtotal. Single-use; restored on cancellation.
const (
	GrantPercent            = 10.0
	CompletedOrdersPerGrant = 10
)

// Grant is a freshly earned discount voucher. Consumption state lives in the
// loyalty_grants row and is flipped through guarded updates, so the domain
// object carries only what issuance needs.
type Grant struct {
	id               uuid.UUID
	ownerID          uuid.UUID
	percent          float64
	sourceCheckpoint int64
}

func NewGrant(ownerID uuid.UUID, sourceCheckpoint int64) *Grant {
	return &Grant{
		id:               uuid.New(),
		ownerID:          ownerID,
		percent:          GrantPercent,
		sourceCheckpoint: sourceCheckpoint,
	}
}

// EligibleCheckpoint reports whether completedCount is a completion at which a
// new grant is earned.
func EligibleCheckpoint(completedCount int64) bool {
	return completedCount > 0 && completedCount%CompletedOrdersPerGrant == 0
}

func (g *Grant) ID() uuid.UUID           { return g.id }
func (g *Grant) OwnerID() uuid.UUID      { return g.ownerID }
func (g *Grant) Percent() float64        { return g.percent }
func (g *Grant) SourceCheckpoint() int64 { return g.sourceCheckpoint }
