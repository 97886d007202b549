package cadence

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pion/rtp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"m7s.live/cadence/config"
	"m7s.live/cadence/util"
)

// RTPPublisher 一个 SSRC 的视频 RTP 流，时间戳变化即为新的一帧
type RTPPublisher struct {
	Publisher
	SSRC    uint32 // 为 0 时锁定收到的第一个 SSRC
	Packets int
	Ignored int // 其它 SSRC 的包
	reorder util.RTPReorder[rtp.Packet]
}

func (p *RTPPublisher) WriteRTP(raw []byte) error {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		return errors.Wrap(err, "rtp unmarshal")
	}
	p.PushPacket(&pkt)
	return nil
}

func (p *RTPPublisher) PushPacket(pkt *rtp.Packet) {
	if p.SSRC == 0 {
		p.SSRC = pkt.SSRC
	} else if pkt.SSRC != p.SSRC {
		p.Ignored++
		return
	}
	p.Packets++
	if p.reorder.Size <= 0 {
		p.writeFrame(uint64(pkt.Timestamp))
		return
	}
	for v := p.reorder.Push(pkt.SequenceNumber, pkt); v != nil; v = p.reorder.Pop() {
		p.writeFrame(uint64(v.Timestamp))
	}
}

// Publish 读取 RFC 4571 分帧（2 字节长度 + RTP 包）的数据
func (p *RTPPublisher) Publish(ctx context.Context, r io.Reader) error {
	defer p.Finish()
	var head [2]byte
	buf := make([]byte, 65535)
	for ctx.Err() == nil {
		if _, err := io.ReadFull(r, head[:]); err != nil {
			if err == io.EOF {
				break
			}
			return errors.Wrap(err, "read rfc4571 length")
		}
		n := int(binary.BigEndian.Uint16(head[:]))
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return errors.Wrap(err, "read rfc4571 packet")
		}
		if err := p.WriteRTP(buf[:n]); err != nil {
			p.Warn("rtp packet", zap.Error(err))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Packets == 0 {
		return ErrNoVideo
	}
	p.Info("rtp done", zap.Uint32("ssrc", p.SSRC), zap.Int("packets", p.Packets), zap.Int("ignored", p.Ignored))
	return nil
}

// ListenRTP 在 UDP 上接收 RTP，按 SSRC 发布为 rtp/<ssrc> 流
func ListenRTP(ctx context.Context, conf *config.Engine) error {
	conn, err := util.ListenUDP(conf.RTP.ListenAddr, conf.RTP.ReadBuffer)
	if err != nil {
		return err
	}
	return ServeRTP(ctx, conn, conf)
}

// ServeRTP 读取 conn 直到 ctx 结束，超时无数据的流被关闭，退出时关闭所有流
func ServeRTP(ctx context.Context, conn *net.UDPConn, conf *config.Engine) error {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	publishers := make(map[uint32]*RTPPublisher)
	closePublisher := func(ssrc uint32) {
		pub := publishers[ssrc]
		pub.Finish()
		pub.Close()
		delete(publishers, ssrc)
	}
	defer func() {
		for ssrc := range publishers {
			closePublisher(ssrc)
		}
	}()
	sweep := func() {
		for ssrc, pub := range publishers {
			if conf.RTP.Timeout > 0 && pub.Idle() > conf.RTP.Timeout {
				pub.Info("rtp timeout", zap.Duration("idle", pub.Idle()))
				closePublisher(ssrc)
			}
		}
	}
	lastSweep := time.Now()
	buf := make([]byte, 65536)
	for {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				sweep()
				continue
			}
			return errors.Wrap(err, "rtp read")
		}
		var pkt rtp.Packet
		if err = pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		pub, ok := publishers[pkt.SSRC]
		if !ok {
			s := Publish(fmt.Sprintf("rtp/%d", pkt.SSRC), FormatRTP, conf.RTP.ClockRate, 32, conf.Pullup)
			pub = &RTPPublisher{Publisher: Publisher{Stream: s}, SSRC: pkt.SSRC}
			pub.reorder.Size = conf.RTP.ReorderLen
			publishers[pkt.SSRC] = pub
		}
		pub.PushPacket(&pkt)
		if time.Since(lastSweep) > time.Second {
			lastSweep = time.Now()
			sweep()
		}
	}
}
