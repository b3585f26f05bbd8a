package logger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	var fromCtx *slog.Logger
	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x", func(c *gin.Context) {
		fromCtx = From(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "rid-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if fromCtx == nil || fromCtx == slog.Default() {
		t.Fatalf("expected request logger on request context")
	}
	if !strings.Contains(buf.String(), `"request_id":"rid-1"`) {
		t.Fatalf("expected request_id in log line, got %s", buf.String())
	}
}

func TestDetached_KeepsLoggerDropsCancel(t *testing.T) {
	l := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	ctx, cancel := context.WithCancel(With(context.Background(), l))
	cancel()

	d := Detached(ctx)
	if d.Err() != nil {
		t.Fatalf("expected detached context to be live")
	}
	if From(d) != l {
		t.Fatalf("expected logger carried over")
	}
}

func TestMiddleware_LogsActorWhenAuthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.POST("/api/leaves", func(c *gin.Context) {
		c.Set("user_id", "17")
		c.Status(http.StatusCreated)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/leaves", nil))

	out := buf.String()
	if !strings.Contains(out, `"actor_id":"17"`) || !strings.Contains(out, `"route":"/api/leaves"`) {
		t.Fatalf("expected actor and route in log line, got %s", out)
	}
}

func TestNew_RedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "production")
	l.Info("login", "token", "abc.def.ghi", "user", "jane")

	out := buf.String()
	if strings.Contains(out, "abc.def.ghi") {
		t.Fatalf("token leaked into log line: %s", out)
	}
	if !strings.Contains(out, `"service":"entity-audit"`) || !strings.Contains(out, `"user":"jane"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
