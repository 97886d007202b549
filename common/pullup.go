package common

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"m7s.live/cadence/codec"
	"m7s.live/cadence/config"
	"m7s.live/cadence/util"
)

const (
	VFRDetectionThreshold     = 3 // 丢失模式的次数
	PatternDetectionThreshold = 2 // 丢失后出现不同模式的次数
	maxErrMsec                = 2.5
)

// PullupCorrection 从连续的显示时间戳中识别帧间隔的重复模式（如 3:2 下拉），
// 给出每帧时长并检测可变帧率。非并发安全，由调用方加锁。
type PullupCorrection struct {
	*zap.Logger
	timeBase codec.TimeBase
	maxErr   float64

	ring          *util.FixedRing[float64]
	prevPTS       float64
	pattern       []float64 // 当前持有的模式，已排序
	lastPattern   []float64 // 最近一次丢失的模式
	hasPattern    bool
	patternLength int
	frameDuration float64

	minFrameDuration float64
	maxFrameDuration float64
	vfrCounter       int
	patternCounter   int

	difftypes []int // GetPattern 复用的缓冲
}

func NewPullupCorrection(conf config.Pullup, logger *zap.Logger) *PullupCorrection {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conf.RingSize < 2 {
		conf.RingSize = 120
	}
	if conf.TimeBase <= 0 {
		conf.TimeBase = float64(codec.DVDTimeBase)
	}
	p := &PullupCorrection{
		Logger:   logger,
		timeBase: codec.TimeBase(conf.TimeBase),
		ring:     util.NewFixedRing[float64](conf.RingSize),
	}
	p.maxErr = p.timeBase.MsecToTime(maxErrMsec)
	p.difftypes = make([]int, conf.RingSize)
	p.ResetVFRDetection()
	p.Flush()
	return p
}

// Flush 清空差值环和模式，保留可变帧率统计。用于跳转或时间戳断裂。
func (p *PullupCorrection) Flush() {
	p.ring.Reset()
	p.prevPTS = codec.NoPTS
	p.pattern = nil
	p.hasPattern = false
	p.patternLength = 0
	p.frameDuration = codec.NoPTS
}

// ResetVFRDetection 只清空可变帧率统计，用于开始新的内容。
func (p *PullupCorrection) ResetVFRDetection() {
	p.minFrameDuration = codec.NoPTS
	p.maxFrameDuration = codec.NoPTS
	p.vfrCounter = 0
	p.patternCounter = 0
	p.lastPattern = nil
}

func (p *PullupCorrection) Add(pts float64) {
	if p.prevPTS == codec.NoPTS {
		p.prevPTS = pts
		return
	}
	p.ring.Push(pts - p.prevPTS)
	p.prevPTS = pts
	if !p.ring.Full() {
		return
	}
	pattern := p.getPattern()
	if !p.checkPattern(pattern) {
		if p.hasPattern {
			p.vfrCounter++
			p.lastPattern = p.pattern
			p.Debug("pattern lost", zap.Float64("diff", p.ring.At(0)), zap.Int("losses", p.vfrCounter))
			p.Flush()
		}
		p.pattern = pattern
		return
	}
	if !p.hasPattern {
		p.hasPattern = true
		p.patternLength = len(p.pattern)
		if len(p.lastPattern) > 0 && !p.checkPattern(p.lastPattern) {
			p.patternCounter++
		}
		p.Debug("pattern detected", zap.Int("length", p.patternLength), zap.String("pattern", p.patternString()))
	}
	p.frameDuration = p.calcFrameDuration()
}

// getPattern 返回能铺满整个差值环的最短模式，找不到时返回 nil
func (p *PullupCorrection) getPattern() []float64 {
	fill := p.ring.Len()
	ids := p.difftypes[:fill]
	var difftypes []float64
	for i := 0; i < fill; i++ {
		diff := p.ring.At(i)
		ids[i] = -1
		for j, t := range difftypes {
			if p.matchDiff(diff, t) {
				ids[i] = j
				break
			}
		}
		if ids[i] == -1 {
			ids[i] = len(difftypes)
			difftypes = append(difftypes, diff)
		}
	}
	// 先检查当前模式的长度，再从 1 开始递增
	checkExisting := len(p.pattern) > 0 && len(p.pattern) <= fill/2
	for i := 1; i <= fill/2; i++ {
		length := i
		if checkExisting {
			length = len(p.pattern)
		}
		hasMatch := true
		for j := 1; j <= fill/length; j++ {
			n := length
			if j*length+length > fill {
				n = fill - j*length
			}
			if n < 1 {
				break
			}
			if !matchDifftypes(ids[:n], ids[j*length:j*length+n]) {
				hasMatch = false
				break
			}
		}
		if checkExisting {
			checkExisting = false
			i--
		}
		if hasMatch {
			return p.buildPattern(length)
		}
	}
	return nil
}

func matchDifftypes(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p *PullupCorrection) matchDiff(a, b float64) bool {
	return math.Abs(a-b) < p.maxErr
}

// buildPattern 每个位置取所有完整分块上的均值，结果升序排列
func (p *PullupCorrection) buildPattern(length int) []float64 {
	tiles := p.ring.Len() / length
	pattern := make([]float64, length)
	for i := range pattern {
		var sum float64
		for j := 0; j < tiles; j++ {
			sum += p.ring.At(j*length + i)
		}
		pattern[i] = sum / float64(tiles)
	}
	sort.Float64s(pattern)
	return pattern
}

// checkPattern 比较给定模式与当前持有的模式
func (p *PullupCorrection) checkPattern(pattern []float64) bool {
	if len(pattern) == 0 || len(pattern) != len(p.pattern) {
		return false
	}
	if len(pattern) == 1 && pattern[0] < p.maxErr {
		return false
	}
	for i := range pattern {
		if !p.matchDiff(pattern[i], p.pattern[i]) {
			return false
		}
	}
	return true
}

func (p *PullupCorrection) calcFrameDuration() float64 {
	var sum float64
	currentMin, currentMax := p.pattern[0], p.pattern[0]
	for _, d := range p.pattern {
		sum += d
		currentMin = math.Min(currentMin, d)
		currentMax = math.Max(currentMax, d)
	}
	if d, ok := p.timeBase.Normalize(currentMin); ok {
		if p.minFrameDuration == codec.NoPTS || d < p.minFrameDuration {
			p.minFrameDuration = d
		}
	}
	if d, ok := p.timeBase.Normalize(currentMax); ok {
		if p.maxFrameDuration == codec.NoPTS || d > p.maxFrameDuration {
			p.maxFrameDuration = d
		}
	}
	d, _ := p.timeBase.Normalize(sum / float64(len(p.pattern)))
	return d
}

func (p *PullupCorrection) patternString() string {
	var b strings.Builder
	b.WriteString("{")
	for i, d := range p.pattern {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " %.2f", d)
	}
	b.WriteString(" }")
	return b.String()
}

func (p *PullupCorrection) PatternLength() int {
	return p.patternLength
}

// FrameDuration 返回模式对应的每帧时长，未检测到模式时为 codec.NoPTS
func (p *PullupCorrection) FrameDuration() float64 {
	return p.frameDuration
}

func (p *PullupCorrection) MinFrameDuration() float64 {
	return p.minFrameDuration
}

func (p *PullupCorrection) MaxFrameDuration() float64 {
	return p.maxFrameDuration
}

// HasFullBuffer 自上次 Flush 以来环是否已经填满，模式丢失时也会 Flush
func (p *PullupCorrection) HasFullBuffer() bool {
	return p.ring.Full()
}

func (p *PullupCorrection) VFRDetected() bool {
	return p.vfrCounter >= VFRDetectionThreshold && p.patternCounter >= PatternDetectionThreshold
}

func (p *PullupCorrection) VFRCounter() int {
	return p.vfrCounter
}

func (p *PullupCorrection) PatternCounter() int {
	return p.patternCounter
}

func (p *PullupCorrection) HasPattern() bool {
	return p.hasPattern
}

// Pattern 返回当前持有模式的副本
func (p *PullupCorrection) Pattern() []float64 {
	if !p.hasPattern {
		return nil
	}
	return append([]float64(nil), p.pattern...)
}

func (p *PullupCorrection) TimeBase() codec.TimeBase {
	return p.timeBase
}
