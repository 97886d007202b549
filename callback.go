package cadence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"m7s.live/cadence/log"
	"m7s.live/cadence/util"
)

const retryTimes = 3

type HttpCallbackData struct {
	StreamPath string         `json:"stream_path"` //流路径
	Format     string         `json:"format"`      //输入格式
	Event      string         `json:"event"`       //事件名称
	Time       int64          `json:"time"`        //调用时间
	Cadence    *StreamEvent   `json:"cadence,omitempty"`
	Summary    *StreamSummary `json:"summary,omitempty"`
}

func doRequest(client *http.Client, host string, data any) error {
	param, _ := json.Marshal(data)

	return util.Retry(retryTimes, time.Second, func() error {
		resp, err := client.Post(host, "application/json", bytes.NewBuffer(param))
		if err != nil {
			log.Warnf("post %s error: %s", host, err.Error())
			return err
		}
		defer resp.Body.Close()

		s := resp.StatusCode
		switch {
		case s >= 500:
			return fmt.Errorf("server %s error: %v", host, s)
		case s >= 400:
			// 客户端错误不重试
			return util.RetryStopErr(fmt.Errorf("client %s error: %v", host, s))
		default:
			return nil
		}
	})
}

func callbackData(event string, payload any) (data HttpCallbackData, ok bool) {
	data.Event = event
	data.Time = time.Now().Unix()
	switch e := payload.(type) {
	case *Stream:
		summary := e.Summary()
		summary.Events = nil
		data.StreamPath, data.Format, data.Summary = e.StreamPath, e.Format, &summary
	case StreamEvent:
		data.StreamPath, data.Cadence = e.StreamPath, &e
		data.Event = string(e.Kind)
		if s := FindStream(e.StreamPath); s != nil {
			data.Format = s.Format
		}
	default:
		return data, false
	}
	return data, true
}

// HttpCallback 把 publish、close 和检测事件 POST 到所有 endpoints，直到 ctx 结束
func HttpCallback(ctx context.Context, endpoints []string) error {
	if len(endpoints) == 0 {
		return nil
	}
	client := &http.Client{Timeout: 5 * time.Second}
	var g errgroup.Group
	for _, name := range []string{HOOK_PUBLISH, HOOK_STREAMCLOSE, HOOK_CADENCE} {
		name := name
		reader := HookReader(name)
		g.Go(func() error {
			err := consumeHook(ctx, reader, func(payload any) error {
				data, ok := callbackData(name, payload)
				if !ok {
					return nil
				}
				for _, endpoint := range endpoints {
					endpoint := endpoint
					go func() {
						if err := doRequest(client, endpoint, data); err != nil {
							log.With(zap.String("endpoint", endpoint)).Warn("callback failed", zap.Error(err))
						}
					}()
				}
				return nil
			})
			if err == ctx.Err() {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
