package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitMiddlewareAllowsBurstThenRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(60, 3))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "203.0.113.5:1234"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	for i := 0; i < 3; i++ {
		if statuses[i] != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, statuses[i])
		}
	}
	if statuses[3] != http.StatusTooManyRequests {
		t.Fatalf("request 3 = %d, want 429", statuses[3])
	}
}

func TestRateLimitMiddlewareIsolatesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(60, 1))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("203.0.113.5:1234"); code != http.StatusOK {
		t.Fatalf("first client = %d, want 200", code)
	}
	if code := do("203.0.113.5:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("exhausted client = %d, want 429", code)
	}
	if code := do("198.51.100.7:1234"); code != http.StatusOK {
		t.Fatalf("second client = %d, want 200", code)
	}
}

func TestIPLimiterSweepsIdleEntries(t *testing.T) {
	l := newIPLimiter(60, 1)
	current := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return current }

	l.allow("a")
	l.allow("b")
	if len(l.limiters) != 2 {
		t.Fatalf("limiters = %d, want 2", len(l.limiters))
	}

	current = current.Add(11 * time.Minute)
	l.allow("c")
	if len(l.limiters) != 1 {
		t.Fatalf("limiters = %d after sweep, want 1", len(l.limiters))
	}
	if _, ok := l.limiters["c"]; !ok {
		t.Fatal("fresh entry must survive sweep")
	}
}
