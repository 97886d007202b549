package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"m7s.live/cadence/codec"
	"m7s.live/cadence/config"
)

func pullupConf(depth int) config.Pullup {
	return config.Pullup{RingSize: 120, TimeBase: 1000000, ReorderDepth: depth, MaxGap: 2 * time.Second}
}

func collect(vt *Video) *[]CadenceEvent {
	var events []CadenceEvent
	vt.OnEvent = func(e CadenceEvent) { events = append(events, e) }
	return &events
}

func kinds(events []CadenceEvent) (ret []EventKind) {
	for _, e := range events {
		ret = append(ret, e.Kind)
	}
	return
}

func TestVideoReorder(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		vt := NewVideo("video", 90000, 33, pullupConf(4), nil)
		events := collect(vt)
		// I P B B 的解码顺序
		order := []int{0, 3, 1, 2}
		for gop := 0; gop < 40; gop++ {
			for _, i := range order {
				vt.WriteTimestamp(uint64((gop*4 + i) * 3003))
			}
		}
		vt.Finish()
		info := vt.Snapshot()
		assert.Equal(t, 160, info.Frames)
		assert.Equal(t, 0, info.Discontinuities)
		require.Equal(t, 1, info.PatternLength)
		assert.Equal(t, codec.DVDTimeBase.StandardDurations()[3], info.FrameDuration)
		assert.InDelta(t, 29.97, info.FPS, 0.001)
		assert.Equal(t, []EventKind{EventPattern}, kinds(*events))
		assert.Equal(t, 1, (*events)[0].PatternLength)
	})
}

func TestVideoDiscontinuity(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		vt := NewVideo("video", 90000, 33, pullupConf(0), nil)
		events := collect(vt)
		var ts uint64
		for i := 0; i < 130; i++ {
			vt.WriteTimestamp(ts)
			ts += 3750
		}
		require.Equal(t, 1, vt.Snapshot().PatternLength)
		ts += 10 * 90000
		vt.WriteTimestamp(ts)
		info := vt.Snapshot()
		assert.Equal(t, 1, info.Discontinuities)
		assert.Equal(t, 0, info.PatternLength)
		assert.Equal(t, 0, info.VFRCounter)
		assert.False(t, info.HasFullBuffer)
		assert.Equal(t, []EventKind{EventPattern, EventDiscontinuity}, kinds(*events))
		// 向后跳变同样视为断裂
		vt.WriteTimestamp(ts - 3750)
		assert.Equal(t, 2, vt.Snapshot().Discontinuities)
	})
}

func TestVideoWrap(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		vt := NewVideo("rtp", 90000, 32, pullupConf(0), nil)
		start := uint64(1<<32 - 50*3600)
		for i := 0; i < 200; i++ {
			vt.WriteTimestamp((start + uint64(i)*3600) & 0xffffffff)
		}
		info := vt.Snapshot()
		assert.Equal(t, 0, info.Discontinuities)
		assert.Equal(t, 1, info.PatternLength)
		assert.InDelta(t, 25, info.FPS, 1e-9)
	})
}

func TestVideoLost(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		conf := pullupConf(0)
		conf.RingSize = 10
		vt := NewVideo("video", 90000, 33, conf, nil)
		events := collect(vt)
		var ts uint64
		for i := 0; i < 20; i++ {
			vt.WriteTimestamp(ts)
			ts += 3003
		}
		ts += 3003
		vt.WriteTimestamp(ts)
		assert.Equal(t, []EventKind{EventPattern, EventLost}, kinds(*events))
		lost := (*events)[1]
		assert.Equal(t, 21, lost.Frame)
		assert.Equal(t, 0, lost.PatternLength)
		info := vt.Snapshot()
		assert.Equal(t, 1, info.VFRCounter)
		assert.False(t, info.VFRDetected)
		vt.ResetVFRDetection()
		assert.Equal(t, 0, vt.Snapshot().VFRCounter)
		vt.Flush()
		vt.WriteTimestamp(5)
		assert.Equal(t, 0, vt.Snapshot().Discontinuities)
	})
}

func TestVideoPending(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		vt := NewVideo("video", 90000, 33, pullupConf(4), nil)
		for i := 0; i < 10; i++ {
			vt.WriteTimestamp(uint64(i * 3003))
		}
		info := vt.Snapshot()
		assert.Equal(t, 10, info.Frames)
		assert.Equal(t, 4, info.Pending)
		vt.Finish()
		info = vt.Snapshot()
		assert.Equal(t, 10, info.Frames)
		assert.Equal(t, 0, info.Pending)
	})
}
