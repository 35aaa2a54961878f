package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const csrfHeader = "X-CSRF-Token"

// CSRFMiddleware guards state-changing requests with a synchronizer token
// that rotates periodically. The previous token stays valid for a grace period.
type CSRFMiddleware struct {
	mu               sync.RWMutex
	current          string
	previous         string
	rotatedAt        time.Time
	rotationInterval time.Duration
	gracePeriod      time.Duration
	stop             chan struct{}
}

// NewCSRFMiddleware creates CSRF middleware rotating hourly with a
// one-minute grace period.
func NewCSRFMiddleware() (*CSRFMiddleware, error) {
	return NewCSRFMiddlewareWithRotation(time.Hour, time.Minute)
}

// NewCSRFMiddlewareWithRotation creates CSRF middleware with configurable rotation.
func NewCSRFMiddlewareWithRotation(rotationInterval, gracePeriod time.Duration) (*CSRFMiddleware, error) {
	token, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial CSRF token: %w", err)
	}

	c := &CSRFMiddleware{
		current:          token,
		rotatedAt:        time.Now(),
		rotationInterval: rotationInterval,
		gracePeriod:      gracePeriod,
		stop:             make(chan struct{}),
	}
	go c.rotationLoop()
	return c, nil
}

func (c *CSRFMiddleware) rotationLoop() {
	ticker := time.NewTicker(c.rotationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.rotate()
		case <-c.stop:
			return
		}
	}
}

// Stop ends the rotation loop.
func (c *CSRFMiddleware) Stop() {
	close(c.stop)
}

func (c *CSRFMiddleware) rotate() {
	token, err := generateSecureToken(32)
	if err != nil {
		// Keep serving the current token.
		log.Printf("[CSRF] Failed to rotate token, keeping current: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous, c.current = c.current, token
	c.rotatedAt = time.Now()
	log.Printf("[CSRF] Token rotated")
}

// Token returns the current token.
func (c *CSRFMiddleware) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *CSRFMiddleware) valid(token string) bool {
	if token == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if subtle.ConstantTimeCompare([]byte(token), []byte(c.current)) == 1 {
		return true
	}
	return c.previous != "" && time.Since(c.rotatedAt) < c.gracePeriod &&
		subtle.ConstantTimeCompare([]byte(token), []byte(c.previous)) == 1
}

// Wrap rejects POST, PUT, PATCH and DELETE requests without a valid token.
func (c *CSRFMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !c.valid(r.Header.Get(csrfHeader)) {
				writeMiddlewareError(w, http.StatusForbidden, "CSRF_ERROR", "Invalid or missing CSRF token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter is a sliding-window, per-client, in-memory limiter.
type RateLimiter struct {
	mu         sync.Mutex
	requests   map[string][]time.Time
	limit      int
	window     time.Duration
	maxEntries int
	stop       chan struct{}
}

// NewRateLimiter allows limit requests per window per client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterWithMax(limit, window, 10000)
}

// NewRateLimiterWithMax also bounds the number of tracked clients.
func NewRateLimiterWithMax(limit int, window time.Duration, maxEntries int) *RateLimiter {
	rl := &RateLimiter{
		requests:   make(map[string][]time.Time),
		limit:      limit,
		window:     window,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for client, times := range rl.requests {
				if recent := rl.inWindow(times, now); len(recent) == 0 {
					delete(rl.requests, client)
				} else {
					rl.requests[client] = recent
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) inWindow(times []time.Time, now time.Time) []time.Time {
	var recent []time.Time
	for _, t := range times {
		if now.Sub(t) < rl.window {
			recent = append(recent, t)
		}
	}
	return recent
}

// Allow records a request from client and reports whether it is within the limit.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.inWindow(rl.requests[client], now)
	if len(recent) >= rl.limit {
		return false
	}

	if _, tracked := rl.requests[client]; !tracked && len(rl.requests) >= rl.maxEntries {
		rl.evictOldest()
	}

	rl.requests[client] = append(recent, now)
	return true
}

// evictOldest drops the client whose first tracked request is oldest.
// Caller holds mu.
func (rl *RateLimiter) evictOldest() {
	var (
		oldest     string
		oldestTime time.Time
	)
	for client, times := range rl.requests {
		if len(times) == 0 {
			continue
		}
		if oldest == "" || times[0].Before(oldestTime) {
			oldest, oldestTime = client, times[0]
		}
	}
	if oldest != "" {
		delete(rl.requests, oldest)
		log.Printf("[RATE_LIMIT] Evicted %s to stay under max entries", oldest)
	}
}

// Wrap rejects requests over the limit with 429.
func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// X-Forwarded-For is ignored: the server is not meant to sit behind a proxy.
		client := clientHost(r.RemoteAddr)
		if !rl.Allow(client) {
			log.Printf("[RATE_LIMIT] Blocked request from %s", client)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeMiddlewareError(w, http.StatusTooManyRequests, "RATE_LIMIT", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientHost strips the port so every connection from one host shares a bucket.
func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// LimitBodySize caps request bodies at maxBytes.
func LimitBodySize(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

func writeMiddlewareError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	resp := errorResponse{Success: false, Error: &apiError{Code: code, Message: msg}}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
