package mpegps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"m7s.live/cadence/codec"
)

type recorder struct {
	video []MpegPsEsStream
	audio int
}

func (r *recorder) ReceiveAudio(MpegPsEsStream) {
	r.audio++
}

func (r *recorder) ReceiveVideo(es MpegPsEsStream) {
	r.video = append(r.video, es)
}

func packHeader() []byte {
	return []byte{0, 0, 1, 0xba, 0x44, 0, 4, 0, 4, 1, 0, 0, 3, 0xf8}
}

func programStreamMap() []byte {
	return []byte{0, 0, 1, 0xbc, 0, 10, 0xe0, 0xff, 0, 0, 0, 4, 0x1b, 0xe0, 0, 0}
}

func pes(streamID byte, pts uint64) []byte {
	b := codec.AppendPESHeader(nil, streamID, pts, 0, false, 4)
	return append(b, 0, 0, 0, 1)
}

func TestFeed(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		var data []byte
		for i := 0; i < 5; i++ {
			data = append(data, packHeader()...)
			if i == 0 {
				data = append(data, programStreamMap()...)
			}
			data = append(data, pes(0xe0, uint64(i)*3003)...)
			data = append(data, pes(0xc0, uint64(i)*1920)...)
		}
		data = append(data, 0, 0, 1, 0xb9)
		var r recorder
		ps := MpegPsStream{EsHandler: &r}
		// 按不规则的分片送入
		for len(data) > 0 {
			n := 7
			if n > len(data) {
				n = len(data)
			}
			require.NoError(t, ps.Feed(data[:n]))
			data = data[n:]
		}
		require.Len(t, r.video, 5)
		assert.Equal(t, 5, r.audio)
		assert.Equal(t, 5, ps.Packs)
		assert.Equal(t, 0, ps.Resync)
		for i, es := range r.video {
			assert.Equal(t, uint64(i)*3003, es.PTS)
			assert.Equal(t, byte(0x1b), es.Type)
		}
	})
}

func TestFeedResync(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		var r recorder
		ps := MpegPsStream{EsHandler: &r}
		data := append([]byte{0x12, 0x34, 0x56}, packHeader()...)
		data = append(data, pes(0xe0, 90000)...)
		require.NoError(t, ps.Feed(data))
		assert.Greater(t, ps.Resync, 0)
		require.Len(t, r.video, 1)
		assert.Equal(t, uint64(90000), r.video[0].PTS)
	})
}

func TestFeedBadPES(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		var r recorder
		ps := MpegPsStream{EsHandler: &r}
		bad := []byte{0, 0, 1, 0xe0, 0, 3, 0x40, 0, 0}
		assert.Error(t, ps.Feed(bad))
		// 出错的包已被消费，后续数据可继续解析
		require.NoError(t, ps.Feed(pes(0xe0, 1)))
		assert.Len(t, r.video, 1)
	})
}
