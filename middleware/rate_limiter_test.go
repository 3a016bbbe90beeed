package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware_PerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(2, nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("203.0.113.7"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, hit("203.0.113.7"))
	assert.Equal(t, http.StatusOK, hit("198.51.100.2"))
}

func TestRateLimiterStore_EvictsIdleIPs(t *testing.T) {
	clk := testclock.NewClock(time.Date(2025, time.March, 3, 7, 0, 0, 0, time.UTC))
	store := newRateLimiterStore(2, clk)

	store.getLimiter("203.0.113.7")
	store.getLimiter("198.51.100.2")
	assert.Equal(t, 2, store.size())

	clk.Advance(2 * time.Minute)
	store.getLimiter("198.51.100.2")
	assert.Equal(t, 2, store.size())

	clk.Advance(2 * time.Minute)
	store.getLimiter("192.0.2.10")
	assert.Equal(t, 2, store.size())
	_, kept := store.limiters["198.51.100.2"]
	assert.True(t, kept)
	_, evicted := store.limiters["203.0.113.7"]
	assert.False(t, evicted)
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "10.0.0.2:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.2:5000", "198.51.100.2"},
		{"remote addr", nil, "192.0.2.10:44321", "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.header {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(c))
		})
	}
}
