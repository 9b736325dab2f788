package request

import (
	"github.com/google/uuid"
)

type SetCartLineRequest struct {
	BookID   uuid.UUID `json:"book_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}
