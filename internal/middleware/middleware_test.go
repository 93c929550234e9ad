package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-wizard/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedEngine(tokens *service.TokenService, perm string) *gin.Engine {
	r := gin.New()
	r.GET("/x", RequireJWT(tokens), RequirePermission(perm), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", GetClaims(c).UserID)
	})
	return r
}

func TestRequireJWTAndPermission(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	reader, _ := tokens.Issue(5, "viewer", []string{PermExamsRead})
	r := protectedEngine(tokens, PermExamsRead)
	w := protectedEngine(tokens, PermExamsWrite)

	tests := []struct {
		name   string
		engine *gin.Engine
		header string
		want   int
	}{
		{"no header", r, "", http.StatusUnauthorized},
		{"not bearer", r, "Basic abc", http.StatusUnauthorized},
		{"empty bearer", r, "Bearer  ", http.StatusUnauthorized},
		{"bad token", r, "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"granted", r, "Bearer " + reader, http.StatusOK},
		{"lowercase scheme", r, "bearer " + reader, http.StatusOK},
		{"missing permission", w, "Bearer " + reader, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.engine.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && rec.Body.String() != "5" {
				t.Errorf("body = %q, want the user id", rec.Body.String())
			}
		})
	}
}

func TestRequireWSAuth(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	tok, _ := tokens.Issue(9, "viewer", []string{PermExamsRead})
	r := gin.New()
	r.GET("/ws", RequireWSAuth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", GetClaims(c).UserID)
	})

	tests := []struct {
		name   string
		query  string
		header string
		want   int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"blank query token", "?token=%20", "", http.StatusUnauthorized},
		{"bad query token", "?token=abc", "", http.StatusUnauthorized},
		{"query token", "?token=" + tok, "", http.StatusOK},
		{"header wins", "?token=abc", "Bearer " + tok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && rec.Body.String() != "9" {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestRequireAnyPermission(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	tok, _ := tokens.Issue(1, "", []string{PermMaintenanceRun})
	r := gin.New()
	r.GET("/x", RequireJWT(tokens), RequireAnyPermission(PermExamsWrite, PermMaintenanceRun), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.allow("user:1") || !rl.allow("user:1") {
		t.Fatal("first two requests must pass")
	}
	if rl.allow("user:1") {
		t.Error("third request within the interval must be limited")
	}
	if !rl.allow("user:2") {
		t.Error("buckets are per visitor")
	}

	now = now.Add(time.Minute)
	if !rl.allow("user:1") {
		t.Error("bucket must refill after the interval")
	}

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	if len(rl.visitors) != 0 {
		t.Errorf("visitors = %d after cleanup, want 0", len(rl.visitors))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	r := gin.New()
	r.GET("/x", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func brotliEngine(body string) *gin.Engine {
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 64, ExcludedPaths: []string{"/health"}}))
	handler := func(c *gin.Context) { c.String(http.StatusOK, body) }
	r.GET("/data", handler)
	r.GET("/health", handler)
	return r
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("examen ", 100)

	t.Run("compresses large bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
		rec := httptest.NewRecorder()
		brotliEngine(large).ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "br" {
			t.Fatalf("Content-Encoding = %q", rec.Header().Get("Content-Encoding"))
		}
		plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if string(plain) != large {
			t.Error("decoded body differs")
		}
	})

	t.Run("small bodies stay plain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set("Accept-Encoding", "br")
		rec := httptest.NewRecorder()
		brotliEngine("ok").ServeHTTP(rec, req)
		if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != "ok" {
			t.Errorf("encoding = %q body = %q", rec.Header().Get("Content-Encoding"), rec.Body.String())
		}
	})

	t.Run("client without br", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		brotliEngine(large).ServeHTTP(rec, req)
		if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != large {
			t.Error("response must not be compressed")
		}
	})

	t.Run("excluded path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Accept-Encoding", "br")
		rec := httptest.NewRecorder()
		brotliEngine(large).ServeHTTP(rec, req)
		if rec.Header().Get("Content-Encoding") != "" {
			t.Error("excluded path was compressed")
		}
	})
}
