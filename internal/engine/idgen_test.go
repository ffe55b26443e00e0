package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedIDsReturnsInOrder(t *testing.T) {
	a := uuid.MustParse("00000000-0000-4000-8000-00000000000a")
	b := uuid.MustParse("00000000-0000-4000-8000-00000000000b")

	g := NewFixedIDs(a, b)
	assert.Equal(t, a, g.NewID())
	assert.Equal(t, b, g.NewID())
}

func TestFixedIDsPanicsWhenExhausted(t *testing.T) {
	g := NewFixedIDs(uuid.New())
	g.NewID()
	assert.Panics(t, func() { g.NewID() })
}

func TestRandomIDsAreDistinct(t *testing.T) {
	var g RandomIDs
	a, b := g.NewID(), g.NewID()
	require.NotEqual(t, uuid.Nil, a)
	assert.NotEqual(t, a, b)
}
