package cadence

import (
	"context"
	"io"

	"m7s.live/cadence/config"
)

// IPublisher 从某种输入中读出视频帧的时间戳写入流，读完后返回
type IPublisher interface {
	Publish(ctx context.Context, r io.Reader) error
	GetStream() *Stream
}

type Publisher struct {
	*Stream
	lastPTS uint64
	hasPTS  bool
}

func (p *Publisher) GetStream() *Stream {
	return p.Stream
}

// writeFrame 连续相同的时间戳属于同一帧，只写入一次
func (p *Publisher) writeFrame(pts uint64) {
	if p.hasPTS && pts == p.lastPTS {
		return
	}
	p.lastPTS, p.hasPTS = pts, true
	p.WriteTimestamp(pts)
}

// NewPublisher 按格式创建发布者，format 取值 ts、ps、rtp、text
func NewPublisher(streamPath, format string, conf *config.Engine) (IPublisher, error) {
	switch format {
	case FormatTS:
		return &TSPublisher{Publisher: Publisher{Stream: NewStream(streamPath, format, 0, 33, conf.Pullup)}}, nil
	case FormatPS:
		return &PSPublisher{Publisher: Publisher{Stream: NewStream(streamPath, format, 0, 33, conf.Pullup)}}, nil
	case FormatRTP:
		p := &RTPPublisher{Publisher: Publisher{Stream: NewStream(streamPath, format, conf.RTP.ClockRate, 32, conf.Pullup)}}
		p.reorder.Size = conf.RTP.ReorderLen
		return p, nil
	case FormatText:
		return &TextPublisher{Publisher: Publisher{Stream: NewStream(streamPath, format, conf.Text.ClockRate, 64, conf.Pullup)}}, nil
	}
	return nil, ErrUnknownFormat
}
