package cadence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpCallback(t *testing.T) {
	t.Run(t.Name(), func(t *testing.T) {
		received := make(chan HttpCallbackData, 16)
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			var data HttpCallbackData
			if json.NewDecoder(r.Body).Decode(&data) == nil && data.StreamPath == "test/callback" {
				received <- data
			}
		}))
		defer server.Close()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- HttpCallback(ctx, []string{server.URL})
		}()
		time.Sleep(100 * time.Millisecond)

		s := Publish("test/callback", FormatText, 90000, 64, testConfig(t).Pullup)
		select {
		case data := <-received:
			assert.Equal(t, "Publish", data.Event)
			assert.Equal(t, FormatText, data.Format)
			require.NotNil(t, data.Summary)
		case <-time.After(5 * time.Second):
			t.Fatal("no callback")
		}
		s.Close()
		select {
		case data := <-received:
			assert.Equal(t, "StreamClose", data.Event)
		case <-time.After(5 * time.Second):
			t.Fatal("no callback")
		}
		cancel()
		assert.NoError(t, <-done)
	})
}
