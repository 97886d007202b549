package track

import (
	"go.uber.org/zap"
	"m7s.live/cadence/codec"
	"m7s.live/cadence/common"
	"m7s.live/cadence/config"
	"m7s.live/cadence/util"
)

type EventKind string

const (
	EventPattern       EventKind = "pattern"       // 检测到模式
	EventLost          EventKind = "lost"          // 模式丢失
	EventVFR           EventKind = "vfr"           // 判定为可变帧率
	EventDiscontinuity EventKind = "discontinuity" // 时间戳断裂，检测器已清空
)

type CadenceEvent struct {
	Kind          EventKind `json:"kind" yaml:"kind"`
	Frame         int       `json:"frame" yaml:"frame"` // 事件发生时已送入的帧数
	Time          float64   `json:"time" yaml:"time"`   // 相对第一帧的秒数
	PatternLength int       `json:"patternLength" yaml:"patternLength"`
	FrameDuration float64   `json:"frameDuration" yaml:"frameDuration"` // 检测器时钟单位，0 表示未知
	Pattern       []float64 `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

type CadenceInfo struct {
	Frames           int       `json:"frames" yaml:"frames"`   // 写入的帧数，含重排窗口中尚未送入检测器的
	Pending          int       `json:"pending" yaml:"pending"` // 重排窗口中的帧数
	Discontinuities  int       `json:"discontinuities" yaml:"discontinuities"`
	TimeBase         float64   `json:"timeBase" yaml:"timeBase"`
	HasFullBuffer    bool      `json:"hasFullBuffer" yaml:"hasFullBuffer"`
	PatternLength    int       `json:"patternLength" yaml:"patternLength"`
	Pattern          []float64 `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	FrameDuration    float64   `json:"frameDuration" yaml:"frameDuration"`
	FPS              float64   `json:"fps" yaml:"fps"`
	MinFrameDuration float64   `json:"minFrameDuration" yaml:"minFrameDuration"`
	MaxFrameDuration float64   `json:"maxFrameDuration" yaml:"maxFrameDuration"`
	VFRCounter       int       `json:"vfrCounter" yaml:"vfrCounter"`
	PatternCounter   int       `json:"patternCounter" yaml:"patternCounter"`
	VFRDetected      bool      `json:"vfrDetected" yaml:"vfrDetected"`
}

func known(d float64) float64 {
	if d == codec.NoPTS {
		return 0
	}
	return d
}

// Video 把某个视频流的原始时间戳（ClockRate 时钟、可能回绕、解码顺序）整理后送入帧间隔检测器
type Video struct {
	*zap.Logger
	Name      string
	ClockRate uint32
	OnEvent   func(CadenceEvent)

	unwrapper       *util.Unwrapper
	reorder         util.PTSReorder
	pullup          *common.PullupCorrection
	maxGap          int64 // ClockRate 时钟下的最大间隔，0 表示不检查
	origin          int64
	last            int64
	started         bool
	frames          int
	discontinuities int
	vfrReported     bool
}

// NewVideo bits 为原始时间戳的位数，RTP 为 32，PES 为 33
func NewVideo(name string, clockRate uint32, bits uint, conf config.Pullup, logger *zap.Logger) *Video {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clockRate == 0 {
		clockRate = codec.PESClockRate
	}
	vt := &Video{
		Logger:    logger.With(zap.String("track", name)),
		Name:      name,
		ClockRate: clockRate,
		unwrapper: util.NewUnwrapper(bits),
		maxGap:    int64(conf.MaxGap.Seconds() * float64(clockRate)),
	}
	vt.reorder.Depth = conf.ReorderDepth
	vt.pullup = common.NewPullupCorrection(conf, vt.Logger)
	return vt
}

// WriteTimestamp 写入一帧的原始时间戳
func (vt *Video) WriteTimestamp(raw uint64) {
	ts := vt.unwrapper.Unwrap(raw)
	if vt.reorder.Depth > 0 {
		var ok bool
		if ts, ok = vt.reorder.Push(ts); !ok {
			return
		}
	}
	vt.feed(ts)
}

// Finish 把重排窗口中剩余的时间戳送入检测器，输入结束时调用
func (vt *Video) Finish() {
	for _, ts := range vt.reorder.Drain() {
		vt.feed(ts)
	}
}

func (vt *Video) feed(ts int64) {
	if !vt.started {
		vt.started = true
		vt.origin = ts
	} else if gap := ts - vt.last; gap < 0 || (vt.maxGap > 0 && gap > vt.maxGap) {
		vt.discontinuities++
		vt.pullup.Flush()
		vt.Warn("timestamp discontinuity", zap.Int64("gap", gap), zap.Int("frame", vt.frames))
		vt.emit(EventDiscontinuity, ts)
	}
	vt.last = ts
	vt.frames++
	hadPattern, losses := vt.pullup.HasPattern(), vt.pullup.VFRCounter()
	vt.pullup.Add(vt.toTimeBase(ts))
	if vt.pullup.VFRCounter() > losses {
		vt.emit(EventLost, ts)
	}
	if !hadPattern && vt.pullup.HasPattern() {
		vt.Info("cadence detected", zap.Int("length", vt.pullup.PatternLength()), zap.Float64("fps", vt.fps()))
		vt.emit(EventPattern, ts)
	}
	if !vt.vfrReported && vt.pullup.VFRDetected() {
		vt.vfrReported = true
		vt.Info("variable frame rate detected", zap.Int("losses", vt.pullup.VFRCounter()), zap.Int("patterns", vt.pullup.PatternCounter()))
		vt.emit(EventVFR, ts)
	}
}

func (vt *Video) toTimeBase(ts int64) float64 {
	return float64(ts-vt.origin) * float64(vt.pullup.TimeBase()) / float64(vt.ClockRate)
}

func (vt *Video) fps() float64 {
	if d := vt.pullup.FrameDuration(); d != codec.NoPTS && d > 0 {
		return float64(vt.pullup.TimeBase()) / d
	}
	return 0
}

func (vt *Video) emit(kind EventKind, ts int64) {
	if vt.OnEvent == nil {
		return
	}
	vt.OnEvent(CadenceEvent{
		Kind:          kind,
		Frame:         vt.frames,
		Time:          float64(ts-vt.origin) / float64(vt.ClockRate),
		PatternLength: vt.pullup.PatternLength(),
		FrameDuration: known(vt.pullup.FrameDuration()),
		Pattern:       vt.pullup.Pattern(),
	})
}

// Flush 跳转后调用，丢弃缓存的时间戳和当前模式，保留可变帧率统计
func (vt *Video) Flush() {
	vt.pullup.Flush()
	vt.reorder.Reset()
	vt.unwrapper.Reset()
	vt.started = false
}

// ResetVFRDetection 开始新的内容时调用
func (vt *Video) ResetVFRDetection() {
	vt.pullup.ResetVFRDetection()
	vt.vfrReported = false
}

func (vt *Video) Snapshot() CadenceInfo {
	p := vt.pullup
	return CadenceInfo{
		Frames:           vt.frames + vt.reorder.Len(),
		Pending:          vt.reorder.Len(),
		Discontinuities:  vt.discontinuities,
		TimeBase:         float64(p.TimeBase()),
		HasFullBuffer:    p.HasFullBuffer(),
		PatternLength:    p.PatternLength(),
		Pattern:          p.Pattern(),
		FrameDuration:    known(p.FrameDuration()),
		FPS:              vt.fps(),
		MinFrameDuration: known(p.MinFrameDuration()),
		MaxFrameDuration: known(p.MaxFrameDuration()),
		VFRCounter:       p.VFRCounter(),
		PatternCounter:   p.PatternCounter(),
		VFRDetected:      p.VFRDetected(),
	}
}
