package mpegps

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"m7s.live/cadence/codec"
	"m7s.live/cadence/util"
)

const (
	StartCodePS        = 0x000001ba
	StartCodeSYS       = 0x000001bb
	StartCodeMAP       = 0x000001bc
	StartCodeVideo     = 0x000001e0
	StartCodeAudio     = 0x000001c0
	PrivateStreamCode  = 0x000001bd
	MEPGProgramEndCode = 0x000001b9
)

var startCodePrefix = []byte{0, 0, 1}

type EsHandler interface {
	ReceiveAudio(MpegPsEsStream)
	ReceiveVideo(MpegPsEsStream)
}

// MpegPsEsStream 一个携带 PTS 的 PES 包
type MpegPsEsStream struct {
	Type     byte // program stream map 中的 stream_type，未收到时为 0
	StreamID byte
	PTS      uint64
	DTS      uint64
	HasDTS   bool
}

type MpegPsStream struct {
	buffer util.Buffer
	EsHandler
	audio  MpegPsEsStream
	video  MpegPsEsStream
	Packs  int // 已解析的 pack 数
	Resync int // 丢失同步的次数
}

func (ps *MpegPsStream) Drop() {
	ps.buffer.Reset()
	ps.audio = MpegPsEsStream{}
	ps.video = MpegPsEsStream{}
}

// Feed 追加数据并解析其中完整的单元，不完整的尾部留到下次
func (ps *MpegPsStream) Feed(data []byte) (err error) {
	ps.buffer.Write(data)
	b := ps.buffer
	off := 0
	for err == nil && len(b)-off >= 4 {
		begin := off
		code := binary.BigEndian.Uint32(b[off:])
		off += 4
		switch {
		case code == StartCodePS:
			off, err = ps.skipPackHeader(b, off)
		case code == StartCodeMAP:
			var psm []byte
			if psm, off, err = readPayload(b, off); err == nil {
				ps.decProgramStreamMap(psm)
			}
		case code == MEPGProgramEndCode:
		case code >= StartCodeVideo && code <= StartCodeVideo+0x0f,
			code >= StartCodeAudio && code <= StartCodeAudio+0x1f:
			if _, off, err = readPayload(b, off); err == nil {
				err = ps.parsePESPacket(b[begin:off])
			}
		case code >= StartCodeSYS && code <= 0x000001ff:
			_, off, err = readPayload(b, off)
		default:
			ps.Resync++
			if next := bytes.Index(b[begin+1:], startCodePrefix); next >= 0 {
				off = begin + 1 + next
			} else {
				off = len(b) - 2
			}
		}
		if err == io.ErrShortBuffer {
			off, err = begin, nil
			break
		}
	}
	ps.buffer.Consume(off)
	return
}

func (ps *MpegPsStream) skipPackHeader(b []byte, off int) (int, error) {
	if len(b) <= off {
		return off, io.ErrShortBuffer
	}
	// MPEG-1 的 pack header 固定 8 字节
	if b[off]&0xc0 != 0x40 {
		if len(b) < off+8 {
			return off, io.ErrShortBuffer
		}
		ps.Packs++
		return off + 8, nil
	}
	if len(b) < off+10 {
		return off, io.ErrShortBuffer
	}
	end := off + 10 + int(b[off+9]&0x07)
	if len(b) < end {
		return off, io.ErrShortBuffer
	}
	ps.Packs++
	return end, nil
}

func readPayload(b []byte, off int) (payload []byte, next int, err error) {
	if len(b) < off+2 {
		return nil, off, io.ErrShortBuffer
	}
	payloadLen := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	if len(b) < off+payloadLen {
		return nil, off, io.ErrShortBuffer
	}
	return b[off : off+payloadLen], off + payloadLen, nil
}

func (ps *MpegPsStream) parsePESPacket(pkt []byte) error {
	h, err := codec.ParsePESHeader(pkt)
	if err != nil {
		return errors.Wrapf(err, "ps stream %#x", pkt[3])
	}
	if !h.HasPTS {
		return nil
	}
	es := &ps.audio
	if codec.IsVideoStreamID(h.StreamID) {
		es = &ps.video
	}
	es.StreamID, es.PTS, es.DTS, es.HasDTS = h.StreamID, h.PTS, h.DTS, h.HasDTS
	if ps.EsHandler == nil {
		return nil
	}
	if es == &ps.video {
		ps.ReceiveVideo(*es)
	} else {
		ps.ReceiveAudio(*es)
	}
	return nil
}

func (ps *MpegPsStream) decProgramStreamMap(psm []byte) {
	l := len(psm)
	index := 2
	if l < index+2 {
		return
	}
	programStreamInfoLen := binary.BigEndian.Uint16(psm[index:])
	index += 2
	index += int(programStreamInfoLen)
	if l < index+2 {
		return
	}
	programStreamMapLen := int(binary.BigEndian.Uint16(psm[index:]))
	index += 2
	for programStreamMapLen > 0 && l >= index+4 {
		streamType := psm[index]
		elementaryStreamID := psm[index+1]
		if codec.IsVideoStreamID(elementaryStreamID) {
			ps.video.Type = streamType
		} else if codec.IsAudioStreamID(elementaryStreamID) {
			ps.audio.Type = streamType
		}
		elementaryStreamInfoLength := int(binary.BigEndian.Uint16(psm[index+2:]))
		index += 4 + elementaryStreamInfoLength
		programStreamMapLen -= 4 + elementaryStreamInfoLength
	}
}
