// file: internal/transport/http/middleware/limiter_test.go

package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Jobly/internal/core/domain"
	"Jobly/internal/core/port"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLimitedEngine(l *IPRateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":12345"
	return req
}

func TestIPRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newLimitedEngine(NewIPRateLimiter(ctx, 1, 1))

	t.Run("should limit requests from the same IP", func(t *testing.T) {
		rr1 := httptest.NewRecorder()
		r.ServeHTTP(rr1, requestFrom("10.0.0.1"))
		if rr1.Code != http.StatusOK {
			t.Fatalf("First request from IP 1 should be allowed, got %d", rr1.Code)
		}

		rr2 := httptest.NewRecorder()
		r.ServeHTTP(rr2, requestFrom("10.0.0.1"))
		if rr2.Code != http.StatusTooManyRequests {
			t.Errorf("Second request from IP 1 should be blocked, got %d", rr2.Code)
		}
		if !bytes.Contains(rr2.Body.Bytes(), []byte(KindRateLimited)) {
			t.Errorf("429 body should carry kind %q, got %s", KindRateLimited, rr2.Body.String())
		}
	})

	t.Run("should not affect requests from a different IP", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, requestFrom("10.0.0.2"))
		if rr.Code != http.StatusOK {
			t.Errorf("Request from IP 2 should be allowed, but got %v", rr.Code)
		}
	})
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewIPRateLimiter(ctx, 1, 1)
	l.getLimiter("10.0.0.1")

	l.sweep(time.Now())
	if len(l.limiters) != 1 {
		t.Fatalf("fresh entry should survive sweep, got %d entries", len(l.limiters))
	}
	l.sweep(time.Now().Add(l.idleTTL + time.Second))
	if len(l.limiters) != 0 {
		t.Errorf("idle entry should be swept, got %d entries", len(l.limiters))
	}
}

func TestIPRateLimiter_SetRate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewIPRateLimiter(ctx, 1, 1)
	r := newLimitedEngine(l)

	r.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.3"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, requestFrom("10.0.0.3"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %v", rr.Code)
	}

	// 放宽限制后，已有条目的突发量也随之增加
	l.SetRate(1000, 10)
	time.Sleep(20 * time.Millisecond)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, requestFrom("10.0.0.3"))
	if rr.Code != http.StatusOK {
		t.Errorf("request after SetRate should be allowed, got %v", rr.Code)
	}
}

// newLoginEngine 模拟 /auth/token：密码为 "right" 时成功，否则附加 Unauthorized 错误
func newLoginEngine(lock *LoginFailureLock) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.POST("/auth/token", lock.Middleware(), func(c *gin.Context) {
		var creds domain.Credentials
		if err := c.ShouldBindBodyWith(&creds, binding.JSON); err != nil {
			_ = c.Error(BindError(err))
			return
		}
		if creds.Password != "right" {
			_ = c.Error(port.Unauthorized("invalid username/password"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": "t"})
	})
	return r
}

func login(r *gin.Engine, username, password string) int {
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.9:5555"
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr.Code
}

func TestLoginFailureLock(t *testing.T) {
	r := newLoginEngine(NewLoginFailureLock(2, time.Minute))

	t.Run("should pass the body through to the handler", func(t *testing.T) {
		if code := login(r, "ok", "right"); code != http.StatusOK {
			t.Fatalf("valid login should succeed, got %d", code)
		}
	})

	t.Run("should lock after repeated failures", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if code := login(r, "victim", "wrong"); code != http.StatusUnauthorized {
				t.Fatalf("failure %d should be 401, got %d", i+1, code)
			}
		}
		if code := login(r, "victim", "right"); code != http.StatusUnauthorized {
			t.Errorf("locked account should be rejected even with the right password, got %d", code)
		}
	})

	t.Run("should not lock other accounts", func(t *testing.T) {
		if code := login(r, "bystander", "right"); code != http.StatusOK {
			t.Errorf("other account should not be affected, got %d", code)
		}
	})

	t.Run("should reset the counter on success", func(t *testing.T) {
		if code := login(r, "flaky", "wrong"); code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", code)
		}
		if code := login(r, "flaky", "right"); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if code := login(r, "flaky", "wrong"); code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", code)
		}
		if code := login(r, "flaky", "right"); code != http.StatusOK {
			t.Errorf("counter should have been reset by the earlier success, got %d", code)
		}
	})
}
