package mpegts

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/Comcast/gots/v2/packet"
	"github.com/Comcast/gots/v2/pes"
	"github.com/Comcast/gots/v2/psi"
	"github.com/pkg/errors"
)

const (
	PacketSize     = packet.PacketSize
	M2TSPacketSize = 192
	SyncByte       = 0x47

	PIDPAT  = 0x0000
	PIDNull = 0x1fff
)

var (
	ErrSync       = errors.New("ts sync byte not found")
	ErrNoProgram  = errors.New("no program in pat")
	ErrPacketSize = errors.New("unknown ts packet size")
	ErrPESStart   = errors.New("pes start code not found")
)

var pesStartCode = []byte{0, 0, 1}

// 视频 stream_type：MPEG-1/2、MPEG-4 Part 2、H.264、H.265、VC-1
var videoStreamTypes = map[byte]string{
	0x01: "mpeg1",
	0x02: "mpeg2",
	0x10: "mpeg4",
	0x1b: "h264",
	0x24: "h265",
	0xea: "vc1",
}

func IsVideoStreamType(t byte) bool {
	_, ok := videoStreamTypes[t]
	return ok
}

func StreamTypeName(t byte) string {
	if name, ok := videoStreamTypes[t]; ok {
		return name
	}
	return "unknown"
}

// Demuxer 从 PAT、PMT 找到第一个视频流，回调其每个 PES 的 PTS
type Demuxer struct {
	OnVideoPTS func(pts uint64)

	pmtPID     int
	VideoPID   int
	StreamType byte
	Packets    int
	Errors     int // 无法解析的 PSI 或 PES 头
}

func NewDemuxer(onVideoPTS func(pts uint64)) *Demuxer {
	return &Demuxer{OnVideoPTS: onVideoPTS, pmtPID: -1, VideoPID: -1}
}

// Feed 处理一个 188 字节的 TS 包
func (d *Demuxer) Feed(b []byte) error {
	if len(b) < PacketSize || b[0] != SyncByte {
		return ErrSync
	}
	var pkt packet.Packet
	copy(pkt[:], b)
	d.Packets++
	pid := pkt.PID()
	if pid == PIDNull || !pkt.PayloadUnitStartIndicator() {
		return nil
	}
	payload, err := pkt.Payload()
	if err != nil {
		// 只有自适应字段
		return nil
	}
	switch pid {
	case PIDPAT:
		if d.pmtPID < 0 {
			return d.parsePAT(payload)
		}
	case d.pmtPID:
		if d.VideoPID < 0 {
			return d.parsePMT(payload)
		}
	case d.VideoPID:
		if !bytes.HasPrefix(payload, pesStartCode) {
			d.Errors++
			return errors.Wrapf(ErrPESStart, "pid %d", pid)
		}
		h, err := pes.NewPESHeader(payload)
		if err != nil {
			d.Errors++
			return errors.Wrapf(err, "pid %d", pid)
		}
		if h.HasPTS() && d.OnVideoPTS != nil {
			d.OnVideoPTS(h.PTS())
		}
	}
	return nil
}

func (d *Demuxer) parsePAT(payload []byte) error {
	pat, err := psi.NewPAT(payload)
	if err != nil {
		d.Errors++
		return errors.Wrap(err, "pat")
	}
	// 多节目时取节目号最小的一个
	program := -1
	for number, pid := range pat.ProgramMap() {
		if number != 0 && (program < 0 || number < program) {
			program, d.pmtPID = number, pid
		}
	}
	if program < 0 {
		return ErrNoProgram
	}
	return nil
}

func (d *Demuxer) parsePMT(payload []byte) error {
	pmt, err := psi.NewPMT(payload)
	if err != nil {
		d.Errors++
		return errors.Wrap(err, "pmt")
	}
	for _, es := range pmt.ElementaryStreams() {
		if IsVideoStreamType(es.StreamType()) {
			d.VideoPID, d.StreamType = es.ElementaryPid(), es.StreamType()
			return nil
		}
	}
	return nil
}

// DetectPacketSize 根据同步字节判断是 188 字节的 TS 还是带 4 字节时间码的 M2TS
func DetectPacketSize(head []byte) int {
	if len(head) > PacketSize && head[0] == SyncByte && head[PacketSize] == SyncByte {
		return PacketSize
	}
	if len(head) > M2TSPacketSize+4 && head[4] == SyncByte && head[M2TSPacketSize+4] == SyncByte {
		return M2TSPacketSize
	}
	return 0
}

// ReadPackets 逐包读取 r 直到 EOF，单个包的错误交给 onError 处理
func (d *Demuxer) ReadPackets(ctx context.Context, r io.Reader, onError func(error)) error {
	br := bufio.NewReaderSize(r, 64*M2TSPacketSize)
	head, _ := br.Peek(2 * M2TSPacketSize)
	size := DetectPacketSize(head)
	if size == 0 {
		return ErrPacketSize
	}
	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return errors.Wrap(err, "read ts")
		}
		pkt := buf[size-PacketSize:]
		if pkt[0] != SyncByte {
			if err := resync(br, size); err != nil {
				return nil
			}
			continue
		}
		if err := d.Feed(pkt); err != nil && onError != nil {
			onError(err)
		}
	}
}

// resync 丢弃数据直到下一个同步字节位于包头位置
func resync(br *bufio.Reader, size int) error {
	for {
		head, err := br.Peek(size)
		if err != nil {
			return err
		}
		i := bytes.IndexByte(head[size-PacketSize:], SyncByte)
		if i == 0 {
			return nil
		}
		if i < 0 {
			i = PacketSize
		}
		if _, err = br.Discard(i); err != nil {
			return err
		}
	}
}
