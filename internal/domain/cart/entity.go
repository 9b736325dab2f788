package cart

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrLineNotFound    = errors.New("cart line not found")
)

// Line is one (book, quantity) pair in a shopper's cart. Lines are ephemeral:
// they are destroyed when the order is placed or the line is removed.
type Line struct {
	bookID   uuid.UUID
	quantity int
}

func NewLine(bookID uuid.UUID, quantity int) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	return Line{bookID: bookID, quantity: quantity}, nil
}

func (l Line) BookID() uuid.UUID { return l.bookID }
func (l Line) Quantity() int     { return l.quantity }

type Cart struct {
	id      uuid.UUID
	ownerID uuid.UUID
	lines   []Line
}

func ReconstructCart(id, ownerID uuid.UUID, lines []Line) *Cart {
	return &Cart{id: id, ownerID: ownerID, lines: lines}
}

func (c *Cart) ID() uuid.UUID      { return c.id }
func (c *Cart) OwnerID() uuid.UUID { return c.ownerID }
func (c *Cart) Lines() []Line      { return c.lines }
func (c *Cart) IsEmpty() bool      { return len(c.lines) == 0 }

func (c *Cart) TotalQuantity() int {
	total := 0
	for _, l := range c.lines {
		total += l.quantity
	}
	return total
}
