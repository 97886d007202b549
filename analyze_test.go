package cadence

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pion/rtp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"m7s.live/cadence/codec"
	"m7s.live/cadence/config"
)

func testConfig(t *testing.T) *config.Engine {
	conf, err := config.Load("")
	require.NoError(t, err)
	return conf
}

func textInput(n int, step int) []byte {
	var b bytes.Buffer
	b.WriteString("# pts\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,video\n", i*step)
	}
	return b.Bytes()
}

func tsPacket(pid uint16, start bool, payload []byte) []byte {
	b := bytes.Repeat([]byte{0xff}, 188)
	b[0] = 0x47
	b[1] = byte(pid>>8) & 0x1f
	if start {
		b[1] |= 0x40
	}
	b[2] = byte(pid)
	b[3] = 0x10
	copy(b[4:], payload)
	return b
}

// psiPayload 加上 pointer_field 和 MPEG-2 CRC32
func psiPayload(section []byte) []byte {
	crc := uint32(0xffffffff)
	for _, v := range section {
		crc ^= uint32(v) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
	}
	payload := append([]byte{0}, section...)
	return append(payload, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
}

func tsInput(n int, step uint64) []byte {
	data := tsPacket(0, true, psiPayload([]byte{0x00, 0xb0, 13, 0, 1, 0xc1, 0, 0, 0, 1, 0xf0, 0x00}))
	data = append(data, tsPacket(0x1000, true, psiPayload([]byte{0x02, 0xb0, 18, 0, 1, 0xc1, 0, 0, 0xe1, 0x00, 0xf0, 0x00,
		0x1b, 0xe1, 0x00, 0xf0, 0x00}))...)
	for i := 0; i < n; i++ {
		pes := codec.AppendPESHeader(nil, codec.StreamIDVideo, 1<<33-100000+uint64(i)*step, 0, false, 0)
		data = append(data, tsPacket(0x100, true, pes)...)
	}
	return data
}

func psInput(n int, step uint64) []byte {
	var data []byte
	for i := 0; i < n; i++ {
		data = append(data, 0, 0, 1, 0xba, 0x44, 0, 4, 0, 4, 1, 0, 0, 3, 0xf8)
		// 一帧拆成两个 PES，只有第一个带 PTS
		data = codec.AppendPESHeader(data, codec.StreamIDVideo, uint64(i)*step, 0, false, 2)
		data = append(data, 0, 1)
		data = append(data, 0, 0, 1, 0xe0, 0, 5, 0x80, 0, 0, 7, 8)
	}
	return data
}

func rtpInput(t *testing.T, frames int, step uint32) []byte {
	var packets [][]byte
	for i := 0; i < frames*2; i++ {
		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    96,
				SequenceNumber: uint16(65000 + i),
				Timestamp:      uint32(i/2) * step,
				SSRC:           0x1234,
				Marker:         i%2 == 1,
			},
			Payload: []byte{1, 2, 3},
		}
		raw, err := pkt.Marshal()
		require.NoError(t, err)
		packets = append(packets, raw)
	}
	// 相邻帧的包交换顺序
	for i := 1; i+1 < len(packets); i += 4 {
		packets[i], packets[i+1] = packets[i+1], packets[i]
	}
	other := rtp.Packet{Header: rtp.Header{Version: 2, PayloadType: 97, SSRC: 0x9999}}
	raw, err := other.Marshal()
	require.NoError(t, err)
	packets = append(packets[:10], append([][]byte{raw}, packets[10:]...)...)
	var data []byte
	for _, p := range packets {
		data = append(data, byte(len(p)>>8), byte(len(p)))
		data = append(data, p...)
	}
	return data
}

func TestDetectFormat(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		cases := []struct {
			path   string
			head   []byte
			format string
		}{
			{"a.bin", tsInput(3, 3003), FormatTS},
			{"a.bin", psInput(1, 3003), FormatPS},
			{"capture.rtp", []byte{0, 12, 0x80}, FormatRTP},
			{"a.mpg", []byte{0, 0, 0}, FormatPS},
			{"list", []byte("0\n3003\n"), FormatText},
		}
		for _, c := range cases {
			format, err := DetectFormat(c.path, c.head)
			require.NoError(t, err, c.path)
			assert.Equal(t, c.format, format, c.path)
		}
		_, err := DetectFormat("a.bin", []byte{1, 0, 2})
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestAnalyzeReader(t *testing.T) {
	ctx := context.Background()
	t.Run("text", func(t *testing.T) {
		conf := testConfig(t)
		s, err := AnalyzeReader(ctx, conf, "list", "", bytes.NewReader(textInput(200, 3003)))
		require.NoError(t, err)
		assert.Equal(t, FormatText, s.Format)
		assert.Equal(t, 200, s.Frames)
		assert.Equal(t, 1, s.PatternLength)
		assert.InDelta(t, 29.97, s.FPS, 0.001)
		assert.NotEmpty(t, s.ID)
	})
	t.Run("ts", func(t *testing.T) {
		conf := testConfig(t)
		s, err := AnalyzeReader(ctx, conf, "a.ts", "", bytes.NewReader(tsInput(150, 3750)))
		require.NoError(t, err)
		assert.Equal(t, FormatTS, s.Format)
		assert.Equal(t, 150, s.Frames)
		assert.Equal(t, 0, s.Discontinuities)
		assert.InDelta(t, 24, s.FPS, 1e-9)
	})
	t.Run("ps", func(t *testing.T) {
		conf := testConfig(t)
		s, err := AnalyzeReader(ctx, conf, "a.ps", "", bytes.NewReader(psInput(150, 3600)))
		require.NoError(t, err)
		assert.Equal(t, FormatPS, s.Format)
		assert.Equal(t, 150, s.Frames)
		assert.InDelta(t, 25, s.FPS, 1e-9)
	})
	t.Run("rtp", func(t *testing.T) {
		conf := testConfig(t)
		s, err := AnalyzeReader(ctx, conf, "a.rtp", "", bytes.NewReader(rtpInput(t, 150, 3003)))
		require.NoError(t, err)
		assert.Equal(t, FormatRTP, s.Format)
		assert.Equal(t, 150, s.Frames)
		assert.Equal(t, 0, s.Discontinuities)
		assert.Equal(t, 1, s.PatternLength)
	})
	t.Run("no video", func(t *testing.T) {
		conf := testConfig(t)
		_, err := AnalyzeReader(ctx, conf, "list", FormatText, strings.NewReader("# nothing\n\n"))
		assert.ErrorIs(t, err, ErrNoVideo)
	})
	t.Run("unknown format", func(t *testing.T) {
		conf := testConfig(t)
		_, err := AnalyzeReader(ctx, conf, "list", "mkv", strings.NewReader("0\n"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestAnalyze(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		dir := t.TempDir()
		files := map[string][]byte{
			"a.txt": textInput(200, 3750),
			"b.ts":  tsInput(200, 3003),
			"c.mpg": psInput(200, 3600),
		}
		var paths []string
		for _, name := range []string{"c.mpg", "a.txt", "b.ts"} {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, files[name], 0644))
			paths = append(paths, path)
		}
		summaries, err := Analyze(context.Background(), testConfig(t), paths, "")
		require.NoError(t, err)
		require.Len(t, summaries, 3)
		assert.Equal(t, FormatPS, summaries[0].Format)
		assert.Equal(t, FormatText, summaries[1].Format)
		assert.Equal(t, FormatTS, summaries[2].Format)
		assert.InDelta(t, 25, summaries[0].FPS, 1e-9)
		assert.InDelta(t, 24, summaries[1].FPS, 1e-9)
		assert.InDelta(t, 29.97, summaries[2].FPS, 0.001)

		_, err = Analyze(context.Background(), testConfig(t), append(paths, filepath.Join(dir, "missing.ts")), "")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}
