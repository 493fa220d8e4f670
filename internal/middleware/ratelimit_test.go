package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to limit then blocks", func(t *testing.T) {
		rl := NewRateLimiter()
		for i := 0; i < 3; i++ {
			allowed, remaining, _ := rl.Check(ctx, "k", 3, time.Minute)
			assert.True(t, allowed)
			assert.Equal(t, 2-i, remaining)
		}

		allowed, remaining, resetAt := rl.Check(ctx, "k", 3, time.Minute)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
		assert.Greater(t, resetAt, time.Now().Unix())
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter()
		allowed, _, _ := rl.Check(ctx, "a", 1, time.Minute)
		assert.True(t, allowed)
		allowed, _, _ = rl.Check(ctx, "a", 1, time.Minute)
		assert.False(t, allowed)
		allowed, _, _ = rl.Check(ctx, "b", 1, time.Minute)
		assert.True(t, allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		rl := NewRateLimiter()
		now := time.Now()
		rl.now = func() time.Time { return now }

		allowed, _, _ := rl.Check(ctx, "k", 1, time.Minute)
		assert.True(t, allowed)
		allowed, _, _ = rl.Check(ctx, "k", 1, time.Minute)
		assert.False(t, allowed)

		now = now.Add(61 * time.Second)
		allowed, _, _ = rl.Check(ctx, "k", 1, time.Minute)
		assert.True(t, allowed)
	})

	t.Run("concurrent callers never exceed limit", func(t *testing.T) {
		rl := NewRateLimiter()
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			granted int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _, _ := rl.Check(ctx, "k", 10, time.Minute); ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, granted)
	})
}

func TestRedisRateLimiter_FallsBackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rl := NewRedisRateLimiter(client, nil)
	ctx := context.Background()

	allowed, remaining, _ := rl.Check(ctx, "k", 1, time.Minute)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, _ = rl.Check(ctx, "k", 1, time.Minute)
	assert.False(t, allowed)
}

func TestIPRateLimitMiddleware(t *testing.T) {
	mw := NewIPRateLimitMiddleware(NewRateLimiter(), 2, time.Minute, "login")
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	rec := call("10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call("10.0.0.2").Code)
}

func TestIPRateLimitMiddleware_Disabled(t *testing.T) {
	mw := NewIPRateLimitMiddleware(NewRateLimiter(), 0, time.Minute, "signup")
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
