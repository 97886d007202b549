package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		engine, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "info", engine.LogLevel)
		assert.Equal(t, 120, engine.Pullup.RingSize)
		assert.Equal(t, 1000000.0, engine.Pullup.TimeBase)
		assert.Equal(t, 4, engine.Pullup.ReorderDepth)
		assert.Equal(t, 2*time.Second, engine.Pullup.MaxGap)
		assert.Equal(t, uint32(90000), engine.RTP.ClockRate)
		assert.Equal(t, ":8080", engine.HTTP.ListenAddr)
		assert.True(t, engine.HTTP.CORS)
		assert.NotNil(t, engine.RawConfig())
	})
}

// TestUserFile 配置文件覆盖默认值，环境变量优先于配置文件
func TestUserFile(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
global:
  loglevel: debug
  httpcallback:
    - http://127.0.0.1:9000/hook
  pullup:
    ringsize: 60
    maxgap: 500ms
  rtp:
    listenaddr: ":5004"
`), 0644))
		t.Setenv("CADENCE_PULLUP_RINGSIZE", "240")
		engine, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", engine.LogLevel)
		assert.Equal(t, 240, engine.Pullup.RingSize)
		assert.Equal(t, 500*time.Millisecond, engine.Pullup.MaxGap)
		assert.Equal(t, ":5004", engine.RTP.ListenAddr)
		assert.Equal(t, []string{"http://127.0.0.1:9000/hook"}, engine.HTTPCallback)
		m := engine.RawConfig().GetMap()
		assert.Equal(t, 240, m["pullup"].(map[string]any)["ringsize"])
	})
}

func TestInvalidDuration(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pullup:\n  maxgap: 10\n"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
