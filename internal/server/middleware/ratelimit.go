package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/legacyvault/internal/server/handlers"
)

// RateLimiter - token bucket на каждый адрес клиента.
// Защищает вход и разблокировку от перебора токенов и ключей.
type RateLimiter struct {
	clients map[string]*client
	logger  *slog.Logger
	now     func() time.Time
	done    chan struct{}
	limit   rate.Limit
	burst   int
	idle    time.Duration
	mu      sync.Mutex
	stop    sync.Once
}

type client struct {
	lastSeen time.Time
	limiter  *rate.Limiter
}

// NewRateLimiter разрешает n запросов за window с одного адреса.
// n <= 0 или window <= 0 снимает ограничение.
func NewRateLimiter(n int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		logger:  logger,
		now:     time.Now,
		done:    make(chan struct{}),
		limit:   rate.Inf,
		burst:   n,
		idle:    2 * window,
	}
	if n > 0 && window > 0 {
		rl.limit = rate.Every(window / time.Duration(n))
	}
	if rl.idle <= 0 {
		rl.idle = time.Minute
	}

	go rl.evictLoop()
	return rl
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.done:
			return
		}
	}
}

// evictIdle забывает адреса без запросов дольше idle
func (rl *RateLimiter) evictIdle() {
	cutoff := rl.now().Add(-rl.idle)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// Stop останавливает фоновую очистку; повторный вызов безопасен
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

// Allow расходует один токен ключа
func (rl *RateLimiter) Allow(key string) bool {
	_, ok := rl.take(key)
	return ok
}

// take возвращает false и время до следующего токена, если лимит исчерпан
func (rl *RateLimiter) take(key string) (time.Duration, bool) {
	now := rl.now()

	rl.mu.Lock()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Duration(math.MaxInt64), false
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay, false
	}
	return 0, true
}

// RateLimitMiddleware отвечает 429 с Retry-After при превышении лимита.
// X-Forwarded-For учитывается только при trustProxy.
func RateLimitMiddleware(limiter *RateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := handlers.ClientIP(r, trustProxy)

			wait, ok := limiter.take(ip)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			logger.WarnContext(r.Context(), "Rate limit exceeded",
				slog.String("ip", ip),
				slog.String("method", r.Method),
				slog.String("path", sanitizePath(r.URL.Path)),
				slog.Duration("retry_after", wait))

			w.Header().Set("Retry-After", retryAfter(wait))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
		})
	}
}

// retryAfter - целые секунды, не меньше одной
func retryAfter(wait time.Duration) string {
	const maxSeconds = 3600
	secs := int(math.Ceil(wait.Seconds()))
	switch {
	case secs < 1:
		secs = 1
	case secs > maxSeconds:
		secs = maxSeconds
	}
	return strconv.Itoa(secs)
}
