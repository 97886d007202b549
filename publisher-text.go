package cadence

import (
	"bufio"
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TextPublisher 每行一个时间戳，取第一个数值字段，# 开头为注释
type TextPublisher struct {
	Publisher
}

func (p *TextPublisher) Publish(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var line, frames, skipped int
	for scanner.Scan() {
		line++
		if line%1024 == 0 && ctx.Err() != nil {
			break
		}
		v, ok := parseTimestampLine(scanner.Text())
		if !ok {
			skipped++
			continue
		}
		frames++
		p.writeFrame(uint64(int64(math.Round(v))))
	}
	p.Finish()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "read text line %d", line)
	}
	if frames == 0 {
		return ErrNoVideo
	}
	if skipped > 0 {
		p.Debug("text lines skipped", zap.Int("skipped", skipped))
	}
	return nil
}

func parseTimestampLine(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return 0, false
	}
	for _, field := range strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == '\t' || r == ' ' || r == '|'
	}) {
		if v, err := strconv.ParseFloat(field, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}
