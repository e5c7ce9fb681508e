package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(status Status) Check {
	return func(context.Context) ComponentHealth {
		return ComponentHealth{Status: status}
	}
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("index", check(StatusUp))
	c.Register("redis", check(StatusDegraded))
	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Components, 2)

	c.Register("storage", check(StatusDown))
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		code   int
	}{
		{name: "up", status: StatusUp, code: http.StatusOK},
		{name: "degraded stays ready", status: StatusDegraded, code: http.StatusOK},
		{name: "down", status: StatusDown, code: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.Register("index", check(tt.status))
			rec := httptest.NewRecorder()
			c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.code, rec.Code)

			var report Report
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, tt.status, report.Components["index"].Status)
		})
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(func(context.Context) error { return nil }, StatusDown)
	assert.Equal(t, StatusUp, ok(context.Background()).Status)

	failing := PingCheck(func(context.Context) error { return errors.New("dial tcp: refused") }, StatusDegraded)
	res := failing(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "dial tcp: refused", res.Message)
}

func TestReadyHandlerBoundsChecks(t *testing.T) {
	c := NewChecker()
	c.CheckTimeout = 10 * time.Millisecond
	c.Register("storage", func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		return ComponentHealth{Status: StatusDown, Message: ctx.Err().Error()}
	})
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadline exceeded")
}
