package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor tracks one client's limiter and when it was last seen
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorLimiter rate limits requests per client IP
type visitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

func newVisitorLimiter() *visitorLimiter {
	vl := &visitorLimiter{visitors: make(map[string]*visitor)}
	go vl.cleanup()
	return vl
}

func (vl *visitorLimiter) getVisitor(ip string) *rate.Limiter {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	v, ok := vl.visitors[ip]
	if !ok {
		limiter := rate.NewLimiter(5, 15)
		vl.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup drops visitors that have been idle for a while
func (vl *visitorLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		vl.mu.Lock()
		for ip, v := range vl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(vl.visitors, ip)
			}
		}
		vl.mu.Unlock()
	}
}

func (vl *visitorLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !vl.getVisitor(ip).Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
