package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/teambot/core/config"
)

func TestTelegramCollectorCounts(t *testing.T) {
	c := NewTelegramCollector()
	c.UpdateReceived("message")
	c.UpdateReceived("message")
	c.RateLimited("callback")
	c.Handled("cmd.start", "ok", 10*time.Millisecond)
	c.SendResult("notify.applicant", nil)
	c.SendResult("notify.applicant", context.DeadlineExceeded)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.updates.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimited.WithLabelValues("callback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.handled.WithLabelValues("cmd.start", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sends.WithLabelValues("notify.applicant", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sends.WithLabelValues("notify.applicant", "timeout")))
}

func TestListenDisabled(t *testing.T) {
	srv, err := Listen(coreconfig.MetricsConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, srv)
}

func TestServerServesRegistry(t *testing.T) {
	c := NewTelegramCollector()
	c.UpdateReceived("command")
	reg, err := NewRegistry(c)
	require.NoError(t, err)

	srv, err := Listen(coreconfig.MetricsConfig{Listen: "127.0.0.1:0", Path: "/metrics"}, reg)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `teambot_telegram_updates_total{kind="command"} 1`)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	c := NewTelegramCollector()
	_, err := NewRegistry(c, c)
	var dup prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &dup))
}
