// Package middleware file: internal/transport/http/middleware/limiter.go
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"Jobly/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterEntry 存储限制器和最后访问时间
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ==================================================================
//  按 IP 地址的速率限制器 (Per-IP Rate Limiter)
// ==================================================================

// IPRateLimiter 结构体，用于管理IP速率限制
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
}

// NewIPRateLimiter 创建一个新的IP速率限制器，ctx 结束时后台清理协程退出。
func NewIPRateLimiter(ctx context.Context, perSecond float64, burst int) *IPRateLimiter {
	l := &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  15 * time.Minute,
	}
	go l.cleanupDaemon(ctx, 10*time.Minute)
	return l
}

// getLimiter 返回或创建指定IP的速率限制器
func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, exists := l.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(l.rate, l.burst)
		l.limiters[ip] = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// SetRate 在运行时调整速率与突发量，已存在的限制器同步生效。
func (l *IPRateLimiter) SetRate(perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rate.Limit(perSecond) == l.rate && burst == l.burst {
		return
	}
	l.rate = rate.Limit(perSecond)
	l.burst = burst
	for _, entry := range l.limiters {
		entry.limiter.SetLimit(l.rate)
		entry.limiter.SetBurst(l.burst)
	}
	slog.Info("[Rate Limit] IP 速率限制已更新", "per_second", perSecond, "burst", burst)
}

// sweep 删除超过 idleTTL 未访问的条目
func (l *IPRateLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.limiters, ip)
		}
	}
}

func (l *IPRateLimiter) cleanupDaemon(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

// Middleware 返回一个 gin 中间件
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.getLimiter(c.ClientIP()).Allow() {
			WriteError(c, http.StatusTooManyRequests, KindRateLimited, "请求过于频繁，请稍后再试。")
			return
		}
		c.Next()
	}
}

// ============================================================================
//  失败计数与临时锁定 (Failure Counting & Temporary Lockout)
// ============================================================================

// LoginFailureLock 结构体，用于实现登录失败锁定逻辑
type LoginFailureLock struct {
	failureCache    *cache.Cache
	maxFailures     int
	lockoutDuration time.Duration
}

// NewLoginFailureLock 创建一个新的登录失败锁定器
func NewLoginFailureLock(maxFailures int, lockoutDuration time.Duration) *LoginFailureLock {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &LoginFailureLock{
		failureCache:    cache.New(5*time.Minute, 10*time.Minute),
		maxFailures:     maxFailures,
		lockoutDuration: lockoutDuration,
	}
}

// Middleware 返回一个用于包裹登录处理器的中间件。
// 请求体通过 ShouldBindBodyWith 读取并缓存，处理器必须用同样的方式绑定。
func (l *LoginFailureLock) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds domain.Credentials
		// 绑定失败时交给处理器返回具体的校验错误
		_ = c.ShouldBindBodyWith(&creds, binding.JSON)

		username := strings.TrimSpace(creds.Username)
		ip := c.ClientIP()
		lockKey := "lock:" + ip + ":" + username
		failureKey := "failures:" + ip + ":" + username

		if _, found := l.failureCache.Get(lockKey); found {
			slog.Warn("[Login Lock] 已锁定的账户再次尝试登录", "username", username, "ip", ip)
			WriteError(c, http.StatusUnauthorized, "unauthorized", "用户名或密码无效")
			return
		}

		c.Next()

		switch responseStatus(c) {
		case http.StatusUnauthorized:
			// 尝试对计数器加一，key 不存在（第一次失败）时设置初始值
			if err := l.failureCache.Increment(failureKey, int64(1)); err != nil {
				l.failureCache.Set(failureKey, int64(1), cache.DefaultExpiration)
			}

			var currentFailures int
			if x, found := l.failureCache.Get(failureKey); found {
				currentFailures = int(x.(int64))
			}
			slog.Info("[Login Failure] 登录失败", "username", username, "ip", ip, "failures", currentFailures)

			if currentFailures >= l.maxFailures {
				l.failureCache.Set(lockKey, true, l.lockoutDuration)
				l.failureCache.Delete(failureKey)
				slog.Warn("[Login Lock] 账户已被临时锁定", "username", username, "ip", ip, "duration", l.lockoutDuration)
			}
		case http.StatusOK:
			l.failureCache.Delete(failureKey)
		}
	}
}
