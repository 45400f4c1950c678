// Package security 提供接口访问控制
package security

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrMissingAPIKey     = errors.New("API密钥未提供")
	ErrInvalidAPIKey     = errors.New("无效的API密钥")
	ErrRateLimitExceeded = errors.New("请求频率超限")
)

// KeyGuard 静态API密钥校验；未配置密钥时放行所有请求
type KeyGuard struct {
	digests [][32]byte
}

// NewKeyGuard 创建密钥校验器，忽略空白密钥
func NewKeyGuard(keys []string) *KeyGuard {
	g := &KeyGuard{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		g.digests = append(g.digests, sha256.Sum256([]byte(k)))
	}
	return g
}

// Enabled 是否配置了密钥
func (g *KeyGuard) Enabled() bool {
	return len(g.digests) > 0
}

// Check 校验请求携带的密钥
func (g *KeyGuard) Check(r *http.Request) error {
	if !g.Enabled() {
		return nil
	}
	key := ExtractAPIKey(r)
	if key == "" {
		return ErrMissingAPIKey
	}
	d := sha256.Sum256([]byte(key))
	for _, want := range g.digests {
		if subtle.ConstantTimeCompare(d[:], want[:]) == 1 {
			return nil
		}
	}
	return ErrInvalidAPIKey
}

// RateLimiter 滑动窗口频率限制器
type RateLimiter struct {
	requests map[string][]time.Time // key -> 请求时间
	limit    int                    // 时间窗口内最大请求数
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewRateLimiter 创建频率限制器；limit 为 0 时不限制
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow 检查是否允许请求，允许时记录本次请求
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := recent(rl.requests[key], now.Add(-rl.window))
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Run 定期清理过期记录，直到 ctx 结束
func (rl *RateLimiter) Run(ctx context.Context) {
	if rl.limit <= 0 || rl.window <= 0 {
		return
	}
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.now().Add(-rl.window)
	for key, reqs := range rl.requests {
		if valid := recent(reqs, windowStart); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

// Tracked 当前跟踪的 key 数量
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

func recent(reqs []time.Time, since time.Time) []time.Time {
	var valid []time.Time
	for _, t := range reqs {
		if t.After(since) {
			valid = append(valid, t)
		}
	}
	return valid
}

// ExtractAPIKey 从请求中提取API密钥
func ExtractAPIKey(r *http.Request) string {
	// 1. Authorization header
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	// 2. X-API-Key header
	return r.Header.Get("X-API-Key")
}

// ClientKey 频率限制使用的客户端标识：优先使用密钥，否则使用来源IP
func ClientKey(r *http.Request) string {
	if key := ExtractAPIKey(r); key != "" {
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:8])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
