package cadence

import (
	"context"
	"io"

	"go.uber.org/zap"
	"m7s.live/cadence/codec/mpegts"
)

// TSPublisher 读取 MPEG-TS 或 M2TS，取第一个视频 PID 上每个 PES 的 PTS
type TSPublisher struct {
	Publisher
}

func (p *TSPublisher) Publish(ctx context.Context, r io.Reader) error {
	d := mpegts.NewDemuxer(p.writeFrame)
	err := d.ReadPackets(ctx, r, func(err error) {
		p.Warn("ts packet", zap.Error(err))
	})
	p.Finish()
	if err != nil {
		return err
	}
	if d.VideoPID < 0 {
		return ErrNoVideo
	}
	p.Info("ts done", zap.Int("packets", d.Packets), zap.Int("pid", d.VideoPID), zap.String("codec", mpegts.StreamTypeName(d.StreamType)))
	return nil
}
