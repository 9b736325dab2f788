//go:build unit

package loyalty_test

import (
	"testing"

	"bookstore/internal/domain/loyalty"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewGrant(t *testing.T) {
	ownerID := uuid.New()

	g := loyalty.NewGrant(ownerID, 20)

	assert.NotEqual(t, uuid.Nil, g.ID())
	assert.Equal(t, ownerID, g.OwnerID())
	assert.Equal(t, float64(loyalty.GrantPercent), g.Percent())
	assert.Equal(t, int64(20), g.SourceCheckpoint())
}
