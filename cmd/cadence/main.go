package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"m7s.live/cadence"
	"m7s.live/cadence/config"
	"m7s.live/cadence/log"
	"m7s.live/cadence/util"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n  %s analyze [flags] FILE...\n  %s serve [-c config.yaml]\n", os.Args[0], os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}
	var code int
	switch os.Args[1] {
	case "analyze":
		code = analyze(os.Args[2:])
	case "serve":
		code = serve(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		code = exitUsage
	}
	log.Sync()
	os.Exit(code)
}

func loadConfig(path string, logLevel string, noColor bool) (*config.Engine, error) {
	conf, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}
	if noColor || !isatty.IsTerminal(os.Stderr.Fd()) {
		log.DisableColor()
	}
	return conf, log.SetLevel(conf.LogLevel)
}

func analyze(args []string) int {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "yaml config file")
	report := fs.StringP("format", "f", cadence.ReportText, "report format: text, yaml or json")
	inputFormat := fs.String("input", "", "input format: ts, ps, rtp or text (default: detect)")
	ringSize := fs.Int("ringsize", 120, "number of frame intervals searched for a pattern")
	timeBase := fs.Float64("timebase", 1000000, "detector clock ticks per second")
	clockRate := fs.Uint32("clockrate", 90000, "clock rate of text and rtp timestamps")
	reorder := fs.Int("reorder", 4, "presentation order window, 0 when timestamps are already in display order")
	maxGap := fs.Duration("maxgap", 0, "timestamp gap treated as a discontinuity")
	logLevel := fs.String("loglevel", "", "log level: debug, info, warn or error")
	noColor := fs.Bool("no-color", false, "disable colored output")
	events := fs.Bool("events", false, "list cadence events")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s analyze [flags] FILE...\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	conf, err := loadConfig(*configPath, *logLevel, *noColor)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if fs.Changed("ringsize") {
		conf.Pullup.RingSize = *ringSize
	}
	if fs.Changed("timebase") {
		conf.Pullup.TimeBase = *timeBase
	}
	if fs.Changed("clockrate") {
		conf.Text.ClockRate = *clockRate
		conf.RTP.ClockRate = *clockRate
	}
	if fs.Changed("reorder") {
		conf.Pullup.ReorderDepth = *reorder
	}
	if fs.Changed("maxgap") {
		conf.Pullup.MaxGap = *maxGap
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go util.WaitTerm(ctx, cancel)
	summaries, err := cadence.Analyze(ctx, conf, fs.Args(), *inputFormat)
	if err != nil {
		log.Error(err)
		return exitError
	}
	var out io.Writer = os.Stdout
	color := !*noColor && isatty.IsTerminal(os.Stdout.Fd())
	if color {
		out = colorable.NewColorableStdout()
	}
	if err = cadence.WriteReport(out, summaries, cadence.ReportOptions{Format: *report, Color: color, Events: *events}); err != nil {
		log.Error(err)
		return exitUsage
	}
	return exitOK
}

func serve(args []string) int {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "yaml config file")
	logLevel := fs.String("loglevel", "", "log level: debug, info, warn or error")
	noColor := fs.Bool("no-color", false, "disable colored log output")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	conf, err := loadConfig(*configPath, *logLevel, *noColor)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go util.WaitTerm(ctx, cancel)
	if err = cadence.Run(ctx, conf); err != nil {
		log.Error(err)
		return exitError
	}
	return exitOK
}
