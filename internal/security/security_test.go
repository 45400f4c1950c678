package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestKeyGuard_Check(t *testing.T) {
	guard := NewKeyGuard([]string{"alpha", " ", "beta"})

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		expected error
	}{
		{
			name: "Bearer密钥",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer alpha")
			},
			expected: nil,
		},
		{
			name: "X-API-Key密钥",
			setup: func(r *http.Request) {
				r.Header.Set("X-API-Key", "beta")
			},
			expected: nil,
		},
		{
			name: "错误密钥",
			setup: func(r *http.Request) {
				r.Header.Set("X-API-Key", "gamma")
			},
			expected: ErrInvalidAPIKey,
		},
		{
			name:     "无密钥",
			setup:    func(r *http.Request) {},
			expected: ErrMissingAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/rotas", nil)
			tt.setup(req)
			if err := guard.Check(req); err != tt.expected {
				t.Errorf("Check() = %v, expected %v", err, tt.expected)
			}
		})
	}
}

func TestKeyGuard_Disabled(t *testing.T) {
	guard := NewKeyGuard(nil)
	if guard.Enabled() {
		t.Error("Guard without keys should be disabled")
	}
	if err := guard.Check(httptest.NewRequest("GET", "/", nil)); err != nil {
		t.Errorf("Disabled guard should allow everything, got %v", err)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(5, time.Second)

	// 前5次应该允许
	for i := 0; i < 5; i++ {
		if !limiter.Allow("client1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 第6次应该拒绝
	if limiter.Allow("client1") {
		t.Error("Request 6 should be denied")
	}

	// 不同客户端应该允许
	if !limiter.Allow("client2") {
		t.Error("Different client should be allowed")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("c") {
		t.Fatal("First request should be allowed")
	}
	if limiter.Allow("c") {
		t.Fatal("Second request inside the window should be denied")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow("c") {
		t.Error("Request after the window should be allowed")
	}

	now = now.Add(2 * time.Minute)
	limiter.cleanup()
	if limiter.Tracked() != 0 {
		t.Errorf("Expired keys should be removed, %d left", limiter.Tracked())
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	limiter := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("c") {
			t.Fatalf("Request %d should be allowed without a limit", i+1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter.Run(ctx)
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		expected string
	}{
		{
			name: "从Bearer提取",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer test_key")
			},
			expected: "test_key",
		},
		{
			name: "从X-API-Key提取",
			setup: func(r *http.Request) {
				r.Header.Set("X-API-Key", "api_key_123")
			},
			expected: "api_key_123",
		},
		{
			name:     "无密钥",
			setup:    func(r *http.Request) {},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			tt.setup(req)

			result := ExtractAPIKey(req)
			if result != tt.expected {
				t.Errorf("ExtractAPIKey() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if got := ClientKey(req); got != "ip:10.0.0.7" {
		t.Errorf("ClientKey() = %q, want ip:10.0.0.7", got)
	}

	req.Header.Set("X-API-Key", "alpha")
	a := ClientKey(req)
	req.Header.Set("X-API-Key", "beta")
	if b := ClientKey(req); a == b || a[:4] != "key:" {
		t.Errorf("Different keys should map to different clients: %q %q", a, b)
	}
}
