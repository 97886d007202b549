package cadence // import "m7s.live/cadence"

import (
	"context"
	"time"

	. "github.com/logrusorgru/aurora"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"m7s.live/cadence/config"
	"m7s.live/cadence/log"
)

var Version = "dev"

var SysInfo struct {
	StartTime time.Time //启动时间
	Version   string
}

// Run 服务模式：启动 RTP 接收和 HTTP 接口，直到 ctx 结束
func Run(ctx context.Context, conf *config.Engine) error {
	SysInfo.StartTime = time.Now()
	SysInfo.Version = Version
	if err := log.SetLevel(conf.LogLevel); err != nil {
		log.Warn("parse log level error:", err)
	}
	log.With(zap.String("config", "global")).Debug("", zap.Any("config", conf))
	log.Info(Blink("cadence@"+Version), " starting")
	g, ctx := errgroup.WithContext(ctx)
	if conf.RTP.ListenAddr != "" {
		g.Go(func() error {
			log.Info("rtp listen at ", Blink(conf.RTP.ListenAddr))
			return ListenRTP(ctx, conf)
		})
	}
	if len(conf.HTTPCallback) > 0 {
		g.Go(func() error {
			return HttpCallback(ctx, conf.HTTPCallback)
		})
	}
	RegisterAPI(conf)
	g.Go(func() error {
		return conf.HTTP.Listen(ctx)
	})
	err := g.Wait()
	log.Info("cadence stopped")
	return err
}
