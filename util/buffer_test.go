package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		var b Buffer
		assert.True(t, b.CanReadN(0))
		b.Write([]byte{1, 2, 3, 4})
		assert.Equal(t, 4, b.Len())
		b.Consume(1)
		assert.Equal(t, Buffer{2, 3, 4}, b)
		assert.False(t, b.CanReadN(4))
		b.Write([]byte{5})
		assert.Equal(t, Buffer{2, 3, 4, 5}, b)
		b.Consume(10)
		assert.Equal(t, 0, b.Len())
	})
}
