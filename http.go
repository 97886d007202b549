package cadence

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
	"m7s.live/cadence/config"
	"m7s.live/cadence/log"
	"m7s.live/cadence/util"
)

type GlobalConfig struct {
	*config.Engine
}

// RegisterAPI 把接口挂到 conf.HTTP 上
func RegisterAPI(conf *config.Engine) {
	api := &GlobalConfig{conf}
	conf.HTTP.Handle("/api/summary", http.HandlerFunc(api.API_summary))
	conf.HTTP.Handle("/api/sysInfo", http.HandlerFunc(api.API_sysInfo))
	conf.HTTP.Handle("/api/stream", http.HandlerFunc(api.API_stream))
	conf.HTTP.Handle("/api/flush", http.HandlerFunc(api.API_flush))
	conf.HTTP.Handle("/api/resetvfr", http.HandlerFunc(api.API_resetVFR))
	conf.HTTP.Handle("/api/closeStream", http.HandlerFunc(api.API_closeStream))
	conf.HTTP.Handle("/api/config", http.HandlerFunc(api.API_getConfig))
	conf.HTTP.Handle("/api/events", websocket.Handler(api.API_events))
}

func (conf *GlobalConfig) API_summary(rw http.ResponseWriter, r *http.Request) {
	util.ReturnJson(func() (list []StreamSummary) {
		list = []StreamSummary{}
		Streams.Range(func(_ string, s *Stream) {
			summary := s.Summary()
			summary.Events = nil
			list = append(list, summary)
		})
		return
	}, rw)
}

func (conf *GlobalConfig) API_sysInfo(rw http.ResponseWriter, r *http.Request) {
	util.ReturnJson(func() any {
		return &struct {
			Version   string
			StartTime string
			Streams   int
			Host      HostSummary
		}{SysInfo.Version, SysInfo.StartTime.Format("2006-01-02 15:04:05"), Streams.Len(), collectHost()}
	}, rw)
}

func findStream(rw http.ResponseWriter, r *http.Request) *Stream {
	streamPath := r.URL.Query().Get("streamPath")
	if streamPath == "" {
		http.Error(rw, "no query stream", http.StatusBadRequest)
		return nil
	}
	s := FindStream(streamPath)
	if s == nil {
		http.Error(rw, ErrStreamNotFound.Error(), http.StatusNotFound)
	}
	return s
}

func (conf *GlobalConfig) API_stream(rw http.ResponseWriter, r *http.Request) {
	if s := findStream(rw, r); s != nil {
		util.ReturnJson(s.Summary, rw)
	}
}

func (conf *GlobalConfig) API_flush(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s := findStream(rw, r); s != nil {
		s.Flush()
		rw.Write([]byte("success"))
	}
}

func (conf *GlobalConfig) API_resetVFR(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s := findStream(rw, r); s != nil {
		s.ResetVFRDetection()
		rw.Write([]byte("success"))
	}
}

func (conf *GlobalConfig) API_closeStream(rw http.ResponseWriter, r *http.Request) {
	if s := findStream(rw, r); s != nil {
		s.Finish()
		s.Close()
		rw.Write([]byte("success"))
	}
}

// API_getConfig 返回生效的配置
func (conf *GlobalConfig) API_getConfig(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	if raw := conf.RawConfig(); raw != nil {
		json.NewEncoder(rw).Encode(raw.GetMap())
		return
	}
	json.NewEncoder(rw).Encode(conf.Engine)
}

// API_events 通过 websocket 推送 StreamEvent，可用 streamPath 过滤
func (conf *GlobalConfig) API_events(ws *websocket.Conn) {
	defer ws.Close()
	streamPath := ws.Request().URL.Query().Get("streamPath")
	ctx, cancel := context.WithCancel(ws.Request().Context())
	defer cancel()
	go func() {
		io.Copy(io.Discard, ws)
		cancel()
	}()
	logger := log.With(zap.String("remote", ws.Request().RemoteAddr))
	logger.Debug("events subscribed", zap.String("streamPath", streamPath))
	err := AddHookWithContext(ctx, HOOK_CADENCE, func(payload any) error {
		event := payload.(StreamEvent)
		if streamPath != "" && event.StreamPath != streamPath {
			return nil
		}
		ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return websocket.JSON.Send(ws, event)
	})
	logger.Debug("events unsubscribed", zap.Error(err))
}
