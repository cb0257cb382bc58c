package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowBoundary(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d inside the limit denied", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("request over the limit allowed")
	}

	// Other clients count independently.
	if !rl.allow("10.0.0.2") {
		t.Fatal("fresh client denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request denied")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request in the same window allowed")
	}

	// Expire the window and the count starts over.
	rl.mu.Lock()
	rl.visitors["10.0.0.1"].resetTime = time.Now().Add(-time.Second)
	rl.mu.Unlock()

	if !rl.allow("10.0.0.1") {
		t.Fatal("request after window reset denied")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("new window should carry a fresh count of one")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	for i := 0; i < 100; i++ {
		rl.allow(fmt.Sprintf("10.0.1.%d", i))
	}

	rl.mu.Lock()
	for _, v := range rl.visitors {
		v.resetTime = time.Now().Add(-time.Second)
	}
	rl.pruneLocked(time.Now())
	remaining := len(rl.visitors)
	rl.mu.Unlock()

	if remaining != 0 {
		t.Fatalf("%d expired visitors survived prune", remaining)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	get := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}

	if code := get("1.2.3.4"); code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", code)
	}
	if code := get("1.2.3.4"); code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", code)
	}
	// A different client is not affected.
	if code := get("5.6.7.8"); code != http.StatusOK {
		t.Fatalf("other client = %d, want 200", code)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"forwarded single", "1.2.3.4", "9.9.9.9:1234", "1.2.3.4"},
		{"forwarded chain takes first", "1.2.3.4, 5.6.7.8", "9.9.9.9:1234", "1.2.3.4"},
		{"remote addr with port", "", "9.9.9.9:1234", "9.9.9.9"},
		{"remote addr without port", "", "9.9.9.9", "9.9.9.9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tc.forwardedFor)
			}
			if got := clientKey(req); got != tc.want {
				t.Errorf("clientKey = %q, want %q", got, tc.want)
			}
		})
	}
}
