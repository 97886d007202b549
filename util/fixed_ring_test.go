package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRing(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		r := NewFixedRing[int](3)
		assert.Equal(t, 0, r.Len())
		assert.False(t, r.Full())
		r.Push(1)
		r.Push(2)
		assert.Equal(t, 2, r.Len())
		assert.Equal(t, 2, r.At(0))
		assert.Equal(t, 1, r.At(1))
		r.Push(3)
		r.Push(4)
		assert.True(t, r.Full())
		assert.Equal(t, 3, r.Len())
		assert.Equal(t, 4, r.At(0))
		assert.Equal(t, 2, r.At(2))
		assert.Equal(t, 3, r.At(1))
		r.Reset()
		assert.Equal(t, 0, r.Len())
		assert.False(t, r.Full())
		r.Push(9)
		assert.Equal(t, 9, r.At(0))
	})
}
