package cadence

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"m7s.live/cadence/codec/mpegps"
	"m7s.live/cadence/codec/mpegts"
	"m7s.live/cadence/config"
)

const (
	FormatTS   = "ts"
	FormatPS   = "ps"
	FormatRTP  = "rtp"
	FormatText = "text"
)

const sniffSize = 2 * mpegts.M2TSPacketSize

// DetectFormat 先看内容（TS 同步字节、PS pack 起始码），再看扩展名，最后把可读文本当作时间戳列表
func DetectFormat(path string, head []byte) (string, error) {
	if mpegts.DetectPacketSize(head) != 0 {
		return FormatTS, nil
	}
	if len(head) >= 4 && binary.BigEndian.Uint32(head) == mpegps.StartCodePS {
		return FormatPS, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rtp":
		return FormatRTP, nil
	case ".ts", ".m2ts", ".mts":
		return FormatTS, nil
	case ".ps", ".mpg", ".mpeg", ".vob":
		return FormatPS, nil
	case ".txt", ".csv":
		return FormatText, nil
	}
	if len(head) > 0 && utf8.Valid(head) && bytes.IndexByte(head, 0) < 0 {
		return FormatText, nil
	}
	return "", ErrUnknownFormat
}

// AnalyzeReader 读完 r 并返回检测结果，format 为空时自动识别
func AnalyzeReader(ctx context.Context, conf *config.Engine, name, format string, r io.Reader) (summary StreamSummary, err error) {
	br := bufio.NewReader(r)
	if format == "" {
		head, _ := br.Peek(sniffSize)
		if format, err = DetectFormat(name, head); err != nil {
			return
		}
	}
	pub, err := NewPublisher(name, format, conf)
	if err != nil {
		return
	}
	if err = pub.Publish(ctx, br); err != nil {
		return
	}
	return pub.GetStream().Summary(), nil
}

// AnalyzeFile path 为 - 时读取标准输入
func AnalyzeFile(ctx context.Context, conf *config.Engine, path, format string) (StreamSummary, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return StreamSummary{}, errors.Wrap(err, "open input")
		}
		defer f.Close()
		r = f
	}
	summary, err := AnalyzeReader(ctx, conf, path, format, r)
	if err != nil {
		return summary, errors.Wrapf(err, "analyze %s", path)
	}
	return summary, nil
}

// Analyze 并发分析多个输入，结果与 paths 顺序一致，任一输入出错时取消其余的
func Analyze(ctx context.Context, conf *config.Engine, paths []string, format string) ([]StreamSummary, error) {
	summaries := make([]StreamSummary, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() (err error) {
			summaries[i], err = AnalyzeFile(ctx, conf, path, format)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
