package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwrap32(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		u := NewUnwrapper(32)
		var ts uint32 = 0xFFFFFFFF - 3003
		start := u.Unwrap(uint64(ts))
		for i := 1; i <= 5; i++ {
			ts += 3003
			assert.Equal(t, start+int64(i)*3003, u.Unwrap(uint64(ts)))
		}
	})
}

func TestUnwrap33Backwards(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		u := NewUnwrapper(33)
		assert.Equal(t, int64(10), u.Unwrap(10))
		// 跨过 0 向后跳
		assert.Equal(t, int64(-5), u.Unwrap(1<<33-5))
		assert.Equal(t, int64(100), u.Unwrap(100))
		u.Reset()
		assert.Equal(t, int64(7), u.Unwrap(7))
	})
}
