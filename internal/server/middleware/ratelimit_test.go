package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type countingRecorder struct {
	events []string
}

func (m *countingRecorder) Record(ctx context.Context, eventType, subjectID, sessionID, metadata string) error {
	m.events = append(m.events, eventType)
	return nil
}

func (m *countingRecorder) LogEvent(ctx context.Context, eventType, subjectID, sessionID, metadata string) {
	_ = m.Record(ctx, eventType, subjectID, sessionID, metadata)
}

func TestRateLimit_BurstThen429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &countingRecorder{}
	r := gin.New()
	r.Use(RateLimit(NewLimiterStore(1, 2), rec))
	r.POST("/api/checkins", func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/checkins", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)

		if w.Code == http.StatusTooManyRequests {
			var body struct {
				RetryAfter float64 `json:"retryAfter"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad 429 body: %v", err)
			}
			if body.RetryAfter <= 0 {
				t.Errorf("retryAfter = %v, want > 0", body.RetryAfter)
			}
			if w.Header().Get("Retry-After") == "" {
				t.Error("Retry-After header not set")
			}
		}
	}

	okCount, throttled := 0, 0
	for _, s := range statuses {
		switch s {
		case http.StatusOK:
			okCount++
		case http.StatusTooManyRequests:
			throttled++
		}
	}
	if okCount != 2 || throttled != 2 {
		t.Fatalf("statuses = %v, want 2 passed and 2 throttled", statuses)
	}
	if len(rec.events) != 2 {
		t.Errorf("rate_limited audit events = %d, want 2", len(rec.events))
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(NewLimiterStore(1, 1), nil))
	r.POST("/api/checkins", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, addr := range []string{"10.1.1.1:5000", "10.1.1.2:5000", "10.1.1.3:5000"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/checkins", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("first request from %s got %d, want 200", addr, w.Code)
		}
	}
}
