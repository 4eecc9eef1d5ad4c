package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizluv/internal/telemetry"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	file := filepath.Join(t.TempDir(), "logs", "quizluv.log")
	l, closer, err := telemetry.SetupLogger(telemetry.LogConfig{Level: "debug", Format: "json", File: file})
	require.NoError(t, err)

	ctx := telemetry.ContextWithRequestID(context.Background(), "req-1")
	l.DebugContext(ctx, "test: hello", "k", "v")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(file)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &rec))
	assert.Equal(t, "test: hello", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "v", rec["k"])
	assert.Same(t, l, slog.Default())
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	_, _, err := telemetry.SetupLogger(telemetry.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	e := gin.New()
	e.Use(telemetry.RequestID(), telemetry.AccessLog())
	e.GET("/", func(c *gin.Context) {
		seen = telemetry.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	tests := map[string]struct {
		header string
		check  func(t *testing.T, got string)
	}{
		"propagates the caller's id": {
			header: "abc",
			check: func(t *testing.T, got string) {
				assert.Equal(t, "abc", got)
			},
		},

		"generates an id when missing": {
			check: func(t *testing.T, got string) {
				assert.Len(t, got, 36)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(telemetry.HeaderRequestID, tt.header)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			got := w.Header().Get(telemetry.HeaderRequestID)
			tt.check(t, got)
			assert.Equal(t, got, seen)
		})
	}
}

func TestMonitorRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	r := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, telemetry.MonitorRedis(r))

	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "k", "v", 0).Err())
	assert.ErrorIs(t, r.Get(ctx, "missing").Err(), redis.Nil)

	_, err := r.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Get(ctx, "k")
		return nil
	})
	require.NoError(t, err)
}
