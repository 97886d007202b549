package config

import (
	"context"
	"net/http"
	"time"

	. "github.com/logrusorgru/aurora"
	"golang.org/x/sync/errgroup"
	"m7s.live/cadence/log"
	"m7s.live/cadence/util"
)

type Middleware func(string, http.Handler) http.Handler
type HTTP struct {
	ListenAddr    string `default:":8080"`
	ListenAddrTLS string
	CertFile      string
	KeyFile       string
	CORS          bool `default:"true"` //是否自动添加CORS头
	UserName      string
	Password      string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	mux           *http.ServeMux
	middlewares   []Middleware
}

func (config *HTTP) AddMiddleware(middleware Middleware) {
	config.middlewares = append(config.middlewares, middleware)
}

func (config *HTTP) Handle(path string, f http.Handler) {
	if config.mux == nil {
		config.mux = http.NewServeMux()
	}
	if config.CORS {
		f = util.CORS(f)
	}
	if config.UserName != "" && config.Password != "" {
		f = util.BasicAuth(config.UserName, config.Password, f)
	}
	for _, middleware := range config.middlewares {
		f = middleware(path, f)
	}
	config.mux.Handle(path, f)
}

func (config *HTTP) Handler() http.Handler {
	if config.mux == nil {
		config.mux = http.NewServeMux()
	}
	return config.mux
}

// Listen serves http and https until ctx is done or a server fails.
func (config *HTTP) Listen(ctx context.Context) error {
	if config.mux == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	var servers []*http.Server
	if config.ListenAddrTLS != "" {
		server := &http.Server{
			Addr:         config.ListenAddrTLS,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
			Handler:      config.mux,
		}
		servers = append(servers, server)
		g.Go(func() error {
			log.Info("🌐 https listen at ", Blink(config.ListenAddrTLS))
			if err := server.ListenAndServeTLS(config.CertFile, config.KeyFile); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}
	if config.ListenAddr != "" {
		server := &http.Server{
			Addr:         config.ListenAddr,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
			Handler:      config.mux,
		}
		servers = append(servers, server)
		g.Go(func() error {
			log.Info("🌐 http listen at ", Blink(config.ListenAddr))
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		for _, server := range servers {
			server.Close()
		}
		return nil
	})
	return g.Wait()
}
