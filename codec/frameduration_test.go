package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStandard(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		for _, d := range DVDTimeBase.StandardDurations() {
			got, ok := NormalizeFrameDuration(d)
			assert.True(t, ok, "duration %f", d)
			assert.Equal(t, d, got)
		}
	})
}

func TestNormalizeSnaps(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		got, ok := NormalizeFrameDuration(41708)
		assert.True(t, ok)
		assert.Equal(t, DVDTimeBase.StandardDurations()[0], got)

		got, ok = NormalizeFrameDuration(40000.015)
		assert.True(t, ok)
		assert.Equal(t, 40000.0, got)
	})
}

func TestNormalizePassThrough(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		for _, d := range []float64{0, 1, 33000, 40021, 41600, 100000} {
			got, ok := NormalizeFrameDuration(d)
			assert.False(t, ok, "duration %f", d)
			assert.Equal(t, d, got)
		}
	})
}

func TestNormalizeOtherClock(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		var tb TimeBase = 90000
		got, ok := tb.Normalize(3756)
		assert.False(t, ok)
		assert.Equal(t, 3756.0, got)

		got, ok = tb.Normalize(3753.7508)
		assert.True(t, ok)
		assert.InDelta(t, 90000*1.001/24, got, 1e-9)
		assert.Equal(t, 2.5, tb.TimeToMsec(tb.MsecToTime(2.5)))
	})
}

// 正好位于两个标准值中间时取表中靠前的一个
func TestNormalizeTie(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		durations := DVDTimeBase.StandardDurations()
		for _, c := range []struct {
			duration float64
			first    int
			second   int
		}{
			{33350, 3, 4},
			{16675, 6, 7},
		} {
			require.Equal(t, math.Abs(c.duration-durations[c.first]), math.Abs(c.duration-durations[c.second]))
			got, ok := NormalizeFrameDuration(c.duration)
			assert.True(t, ok)
			assert.Equal(t, durations[c.first], got)
		}
	})
}
