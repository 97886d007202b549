package cadence

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"m7s.live/cadence/track"
)

const (
	ReportText = "text"
	ReportYAML = "yaml"
	ReportJSON = "json"
)

type ReportOptions struct {
	Format string // text、yaml 或 json
	Color  bool
	Events bool // 是否输出事件列表
}

func WriteReport(w io.Writer, summaries []StreamSummary, opt ReportOptions) error {
	if !opt.Events {
		stripped := make([]StreamSummary, len(summaries))
		for i, s := range summaries {
			s.Events = nil
			stripped[i] = s
		}
		summaries = stripped
	}
	switch opt.Format {
	case ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(summaries), "json report")
	case ReportYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summaries); err != nil {
			return errors.Wrap(err, "yaml report")
		}
		return errors.Wrap(enc.Close(), "yaml report")
	case ReportText, "":
		au := aurora.NewAurora(opt.Color)
		for _, s := range summaries {
			if _, err := io.WriteString(w, textReport(au, s)); err != nil {
				return errors.Wrap(err, "text report")
			}
		}
		return nil
	}
	return errors.Errorf("unknown report format %q", opt.Format)
}

func formatPattern(pattern []float64) string {
	parts := make([]string, len(pattern))
	for i, d := range pattern {
		parts[i] = fmt.Sprintf("%.2f", d)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func textReport(au aurora.Aurora, s StreamSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %d frames\n", au.Bold(s.StreamPath), s.Format, s.Frames)
	if s.PatternLength > 0 {
		fmt.Fprintf(&b, "  cadence     %s length %d %s\n", au.Green("locked"), s.PatternLength, formatPattern(s.Pattern))
		fmt.Fprintf(&b, "  frame       %.2f (%.3f fps)\n", s.FrameDuration, s.FPS)
	} else if s.HasFullBuffer {
		fmt.Fprintf(&b, "  cadence     %s\n", au.Yellow("no pattern"))
	} else {
		fmt.Fprintf(&b, "  cadence     %s\n", au.Faint("not enough frames"))
	}
	if s.MinFrameDuration > 0 || s.MaxFrameDuration > 0 {
		fmt.Fprintf(&b, "  range       %.2f - %.2f\n", s.MinFrameDuration, s.MaxFrameDuration)
	}
	vfr := au.Green("no")
	if s.VFRDetected {
		vfr = au.Red("yes")
	}
	fmt.Fprintf(&b, "  vfr         %s (losses %d, pattern changes %d)\n", vfr, s.VFRCounter, s.PatternCounter)
	if s.Discontinuities > 0 {
		fmt.Fprintf(&b, "  gaps        %d\n", s.Discontinuities)
	}
	for _, e := range s.Events {
		fmt.Fprintf(&b, "  %8.3fs  frame %-7d %s\n", e.Time, e.Frame, eventText(au, e))
	}
	return b.String()
}

func eventText(au aurora.Aurora, e track.CadenceEvent) string {
	switch e.Kind {
	case track.EventPattern:
		return fmt.Sprintf("%s length %d %s", au.Green(e.Kind), e.PatternLength, formatPattern(e.Pattern))
	case track.EventLost:
		return au.Yellow(e.Kind).String()
	case track.EventVFR:
		return au.Red(e.Kind).String()
	}
	return au.Magenta(e.Kind).String()
}
