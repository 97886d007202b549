package config

import (
	"time"
)

// Pullup 帧间隔模式检测配置
type Pullup struct {
	RingSize     int           `default:"120" desc:"差值环形缓冲长度"`
	TimeBase     float64       `default:"1000000" desc:"检测器时钟，每秒的刻度数"`
	ReorderDepth int           `default:"4" desc:"显示顺序重排窗口"`
	MaxGap       time.Duration `default:"2s" desc:"超过该间隔视为时间戳断裂"`
}

type RTP struct {
	ListenAddr string        `desc:"UDP 监听地址，为空则不监听"`
	ClockRate  uint32        `default:"90000" desc:"视频时钟频率"`
	ReadBuffer int           `default:"1048576" desc:"UDP 读缓冲大小"`
	ReorderLen int           `default:"50" desc:"RTP重排序缓冲长度,0 表示不重排"`
	Timeout    time.Duration `default:"30s" desc:"无数据超时后移除流"`
}

type Text struct {
	ClockRate uint32 `default:"90000" desc:"文本输入中时间戳的时钟频率"`
}

type Engine struct {
	LogLevel     string   `default:"info"` //日志级别
	HTTPCallback []string `desc:"事件回调地址"`
	Pullup
	RTP
	Text
	HTTP
	raw *Config
}

// RawConfig returns the parsed config tree, nil when the Engine was not built by Load.
func (cfg *Engine) RawConfig() *Config {
	return cfg.raw
}
