package codec

import "math"

// NoPTS marks a timestamp or duration that is not known.
const NoPTS float64 = 0xFFF0000000000000

// TimeBase is the number of clock ticks per second of the playback clock.
type TimeBase float64

// DVDTimeBase is the microsecond clock used across the player pipeline.
const DVDTimeBase TimeBase = 1000000

func (tb TimeBase) MsecToTime(ms float64) float64 {
	return ms * float64(tb) / 1000
}

func (tb TimeBase) TimeToMsec(t float64) float64 {
	return t * 1000 / float64(tb)
}

// StandardDurations returns the frame durations of the common broadcast and film rates,
// 23.976, 24, 25, 29.97, 30, 50, 59.94 and 60 Hz, in that order.
func (tb TimeBase) StandardDurations() [8]float64 {
	t := float64(tb)
	return [8]float64{
		t * 1.001 / 24.0,
		t / 24.0,
		t / 25.0,
		t * 1.001 / 30.0,
		t / 30.0,
		t / 50.0,
		t * 1.001 / 60.0,
		t / 60.0,
	}
}

// Normalize snaps a frame duration to the closest standard duration when it lies within 20µs of it.
// The second result reports whether a standard duration was selected.
func (tb TimeBase) Normalize(frameDuration float64) (float64, bool) {
	durations := tb.StandardDurations()
	epsilon := tb.MsecToTime(0.02)
	lowest := float64(tb)
	selected := -1
	for i, d := range durations {
		if diff := math.Abs(frameDuration - d); diff < epsilon && diff < lowest {
			selected = i
			lowest = diff
		}
	}
	if selected == -1 {
		return frameDuration, false
	}
	return durations[selected], true
}

// NormalizeFrameDuration is Normalize on the DVDTimeBase clock.
func NormalizeFrameDuration(frameDuration float64) (float64, bool) {
	return DVDTimeBase.Normalize(frameDuration)
}
