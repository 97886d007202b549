package cadence

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"m7s.live/cadence/config"
	"m7s.live/cadence/log"
	"m7s.live/cadence/track"
	"m7s.live/cadence/util"
)

var (
	ErrStreamNotFound = errors.New("stream not found")
	ErrUnknownFormat  = errors.New("unknown input format")
	ErrNoVideo        = errors.New("no video timestamps")
)

// 每个流保留的事件数
const timelineSize = 256

// Streams 服务模式下所有的流
var Streams util.Map[string, *Stream]

// FindStream 根据流路径查找流
func FindStream(streamPath string) *Stream {
	s, _ := Streams.Get(streamPath)
	return s
}

// Publish 返回 streamPath 对应的流，不存在时创建并触发 HOOK_PUBLISH
func Publish(streamPath, format string, clockRate uint32, bits uint, conf config.Pullup) *Stream {
	s, loaded := Streams.LoadOrStore(streamPath, func() *Stream {
		return NewStream(streamPath, format, clockRate, bits, conf)
	})
	if !loaded {
		s.Info("publish", zap.String("format", format))
		TriggerHook(HOOK_PUBLISH, s)
	}
	return s
}

type StreamEvent struct {
	StreamPath         string `json:"streamPath" yaml:"streamPath"`
	track.CadenceEvent `yaml:",inline"`
}

type StreamSummary struct {
	ID                string    `json:"id" yaml:"id"`
	StreamPath        string    `json:"streamPath" yaml:"streamPath"`
	Format            string    `json:"format" yaml:"format"`
	StartTime         time.Time `json:"startTime" yaml:"startTime"`
	track.CadenceInfo `yaml:",inline"`
	Events            []track.CadenceEvent `json:"events,omitempty" yaml:"events,omitempty"`
	DroppedEvents     int                  `json:"droppedEvents,omitempty" yaml:"droppedEvents,omitempty"`
}

// Stream 一路输入，对检测器的访问都在锁内
type Stream struct {
	*zap.Logger
	sync.Mutex
	ID         string
	StreamPath string
	Format     string
	StartTime  time.Time
	LastActive time.Time
	video      *track.Video
	timeline   []track.CadenceEvent
	dropped    int // 超出 timelineSize 被丢弃的事件数
}

func NewStream(streamPath, format string, clockRate uint32, bits uint, conf config.Pullup) *Stream {
	s := &Stream{
		ID:         uuid.NewString(),
		StreamPath: streamPath,
		Format:     format,
		StartTime:  time.Now(),
	}
	s.LastActive = s.StartTime
	s.Logger = log.With(zap.String("stream", streamPath))
	s.video = track.NewVideo("video", clockRate, bits, conf, s.Logger)
	s.video.OnEvent = s.onEvent
	return s
}

func (s *Stream) onEvent(e track.CadenceEvent) {
	if len(s.timeline) == timelineSize {
		copy(s.timeline, s.timeline[1:])
		s.timeline = s.timeline[:timelineSize-1]
		s.dropped++
	}
	s.timeline = append(s.timeline, e)
	TriggerHook(HOOK_CADENCE, StreamEvent{StreamPath: s.StreamPath, CadenceEvent: e})
}

func (s *Stream) WriteTimestamp(raw uint64) {
	s.Lock()
	defer s.Unlock()
	s.LastActive = time.Now()
	s.video.WriteTimestamp(raw)
}

// Finish 输入结束，送入重排窗口中剩余的时间戳
func (s *Stream) Finish() {
	s.Lock()
	defer s.Unlock()
	s.video.Finish()
}

func (s *Stream) Flush() {
	s.Lock()
	defer s.Unlock()
	s.video.Flush()
	s.Info("flush")
}

func (s *Stream) ResetVFRDetection() {
	s.Lock()
	defer s.Unlock()
	s.video.ResetVFRDetection()
	s.Info("reset vfr detection")
}

// Idle 距离上一次写入的时间
func (s *Stream) Idle() time.Duration {
	s.Lock()
	defer s.Unlock()
	return time.Since(s.LastActive)
}

func (s *Stream) Frames() int {
	s.Lock()
	defer s.Unlock()
	return s.video.Snapshot().Frames
}

func (s *Stream) Events() []track.CadenceEvent {
	s.Lock()
	defer s.Unlock()
	return append([]track.CadenceEvent(nil), s.timeline...)
}

func (s *Stream) Summary() StreamSummary {
	s.Lock()
	defer s.Unlock()
	return StreamSummary{
		ID:            s.ID,
		StreamPath:    s.StreamPath,
		Format:        s.Format,
		StartTime:     s.StartTime,
		CadenceInfo:   s.video.Snapshot(),
		Events:        append([]track.CadenceEvent(nil), s.timeline...),
		DroppedEvents: s.dropped,
	}
}

// Close 从 Streams 中移除并触发 HOOK_STREAMCLOSE
func (s *Stream) Close() {
	if cur, ok := Streams.Get(s.StreamPath); ok && cur == s {
		Streams.Delete(s.StreamPath)
	}
	s.Info("close", zap.Int("frames", s.Frames()))
	TriggerHook(HOOK_STREAMCLOSE, s)
}
