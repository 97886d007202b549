package codec

import (
	"github.com/pkg/errors"
	"github.com/q191201771/naza/pkg/nazabits"
)

const (
	// PESClockRate 是 PES 中 PTS/DTS 的时钟频率
	PESClockRate     = 90000
	PESTimestampBits = 33

	StreamIDPrivate1 = 0xbd
	StreamIDPadding  = 0xbe
	StreamIDPrivate2 = 0xbf
	StreamIDAudio    = 0xc0 // 0xc0-0xdf
	StreamIDVideo    = 0xe0 // 0xe0-0xef
)

var ErrPESHeader = errors.New("invalid pes header")

type PESHeader struct {
	StreamID     byte
	PacketLength uint16 // 0 表示长度不定（仅视频）
	HeaderLength int    // 负载之前的字节数
	HasPTS       bool
	HasDTS       bool
	PTS          uint64
	DTS          uint64
}

func IsVideoStreamID(id byte) bool {
	return id&0xf0 == StreamIDVideo
}

func IsAudioStreamID(id byte) bool {
	return id&0xe0 == StreamIDAudio
}

func hasOptionalHeader(id byte) bool {
	switch id {
	case StreamIDPadding, StreamIDPrivate2, 0xbc, 0xf0, 0xf1, 0xf2, 0xf8, 0xff:
		return false
	}
	return true
}

// ParsePESHeader 解析以 00 00 01 开头的 PES 包头
func ParsePESHeader(b []byte) (h PESHeader, err error) {
	br := nazabits.NewBitReader(b)
	prefix, err := br.ReadBits32(24)
	if err != nil {
		return h, errors.Wrap(err, "pes start code")
	}
	if prefix != 1 {
		return h, errors.Wrapf(ErrPESHeader, "start code %06x", prefix)
	}
	if h.StreamID, err = br.ReadBits8(8); err != nil {
		return
	}
	if h.PacketLength, err = br.ReadBits16(16); err != nil {
		return
	}
	h.HeaderLength = 6
	if !hasOptionalHeader(h.StreamID) {
		return
	}
	var marker, flags, headerDataLength uint8
	if marker, err = br.ReadBits8(2); err != nil {
		return h, errors.Wrap(err, "pes optional header")
	}
	if marker != 0b10 {
		return h, errors.Wrapf(ErrPESHeader, "stream %#x marker bits %b", h.StreamID, marker)
	}
	if _, err = br.ReadBits8(6); err != nil {
		return
	}
	if flags, err = br.ReadBits8(2); err != nil {
		return
	}
	if _, err = br.ReadBits8(6); err != nil {
		return
	}
	if headerDataLength, err = br.ReadBits8(8); err != nil {
		return
	}
	h.HeaderLength = 9 + int(headerDataLength)
	if flags == 0b01 {
		return h, errors.Wrapf(ErrPESHeader, "stream %#x forbidden PTS_DTS_flags", h.StreamID)
	}
	if flags&0b10 != 0 {
		if h.PTS, err = readTimestamp(&br); err != nil {
			return h, errors.Wrap(err, "pes pts")
		}
		h.HasPTS = true
	}
	if flags == 0b11 {
		if h.DTS, err = readTimestamp(&br); err != nil {
			return h, errors.Wrap(err, "pes dts")
		}
		h.HasDTS = true
	}
	if len(b) < h.HeaderLength {
		return h, errors.Wrapf(ErrPESHeader, "stream %#x header length %d exceeds %d bytes", h.StreamID, h.HeaderLength, len(b))
	}
	return
}

// 4 位前缀 + 3/15/15 位时间戳，各段后跟一个 marker 位
func readTimestamp(br *nazabits.BitReader) (ts uint64, err error) {
	var hi uint8
	var mid, lo uint16
	if _, err = br.ReadBits8(4); err != nil {
		return
	}
	if hi, err = br.ReadBits8(3); err != nil {
		return
	}
	if _, err = br.ReadBit(); err != nil {
		return
	}
	if mid, err = br.ReadBits16(15); err != nil {
		return
	}
	if _, err = br.ReadBit(); err != nil {
		return
	}
	if lo, err = br.ReadBits16(15); err != nil {
		return
	}
	if _, err = br.ReadBit(); err != nil {
		return
	}
	return uint64(hi)<<30 | uint64(mid)<<15 | uint64(lo), nil
}

func putTimestamp(b []byte, prefix byte, ts uint64) {
	b[0] = prefix<<4 | byte(ts>>29)&0x0e | 1
	b[1] = byte(ts >> 22)
	b[2] = byte(ts>>14)&0xfe | 1
	b[3] = byte(ts >> 7)
	b[4] = byte(ts<<1) | 1
}

// AppendPESHeader 追加一个带 PTS（可选 DTS）的 PES 包头，payloadLen 为随后负载的长度
func AppendPESHeader(dst []byte, streamID byte, pts uint64, dts uint64, hasDTS bool, payloadLen int) []byte {
	headerDataLength := 5
	flags := byte(0b10)
	if hasDTS {
		headerDataLength = 10
		flags = 0b11
	}
	packetLength := 3 + headerDataLength + payloadLen
	if packetLength > 0xffff {
		packetLength = 0
	}
	b := make([]byte, 9+headerDataLength)
	b[2] = 1
	b[3] = streamID
	b[4] = byte(packetLength >> 8)
	b[5] = byte(packetLength)
	b[6] = 0x80
	b[7] = flags << 6
	b[8] = byte(headerDataLength)
	putTimestamp(b[9:], flags, pts)
	if hasDTS {
		putTimestamp(b[14:], 1, dts)
	}
	return append(dst, b...)
}
