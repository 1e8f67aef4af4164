package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/server/httperr"
	"golang.org/x/time/rate"
)

// IPLimiter 每個來源 IP 一個 token bucket。
// 閒置超過 idle 的 bucket 會在之後的請求中順便清掉。
type IPLimiter struct {
	mu    sync.Mutex
	perIP map[string]*ipBucket
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time
	sweep time.Time
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewIPLimiter perMinute 每分鐘可用次數，burst 瞬間上限（最少 1）。
func NewIPLimiter(perMinute, burst int) *IPLimiter {
	return &IPLimiter{
		perIP: make(map[string]*ipBucket, 64),
		limit: rate.Limit(float64(max(perMinute, 1)) / 60),
		burst: max(burst, 1),
		idle:  10 * time.Minute,
		now:   time.Now,
	}
}

// Allow 回報 ip 這次是否放行。
func (l *IPLimiter) Allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweep) > l.idle {
		for k, b := range l.perIP {
			if now.Sub(b.seen) > l.idle {
				delete(l.perIP, k)
			}
		}
		l.sweep = now
	}

	b, ok := l.perIP[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.perIP[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perIP)
}

// Middleware 超過額度時回 429。
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	retry := strconv.Itoa(int(max(time.Second, time.Duration(float64(time.Second)/float64(l.limit))).Seconds()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", retry)
			httperr.Write(w, http.StatusTooManyRequests, dto.ErrorBody{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
