package cadence

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"m7s.live/cadence/codec/mpegps"
)

// PSPublisher 读取 MPEG-PS，取视频 PES 的 PTS
type PSPublisher struct {
	Publisher
	mpegps.MpegPsStream
	videoPackets int
}

func (p *PSPublisher) ReceiveVideo(es mpegps.MpegPsEsStream) {
	p.videoPackets++
	p.writeFrame(es.PTS)
}

func (p *PSPublisher) ReceiveAudio(es mpegps.MpegPsEsStream) {
}

func (p *PSPublisher) Publish(ctx context.Context, r io.Reader) error {
	p.EsHandler = p
	buf := make([]byte, 64*1024)
	defer p.Finish()
	for ctx.Err() == nil {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := p.Feed(buf[:n]); ferr != nil {
				p.Warn("ps packet", zap.Error(ferr))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "read ps")
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.videoPackets == 0 {
		return ErrNoVideo
	}
	p.Info("ps done", zap.Int("packs", p.Packs), zap.Int("resync", p.Resync))
	return nil
}
