// Package ratelimit paces requests per host and stops hammering a host that keeps failing.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/logging"
)

// ErrCircuitOpen is returned by Wait while a host's circuit breaker is open
type ErrCircuitOpen struct {
	Host  string
	Until time.Time
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for %s until %s", e.Host, e.Until.Format(time.RFC3339))
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns string representation of CircuitState
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type hostLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	requests int64
	failures int64
}

type circuitBreaker struct {
	failureCount int
	lastFailTime time.Time
	state        CircuitState
}

// HostStats is a snapshot of one host's pacing state
type HostStats struct {
	Host         string    `json:"host"`
	Requests     int64     `json:"requests"`
	Failures     int64     `json:"failures"`
	LastSeen     time.Time `json:"last_seen"`
	CircuitState string    `json:"circuit_state"`
	FailureCount int       `json:"failure_count"`
}

// Limiter manages rate limiting and circuit breaking per host
type Limiter struct {
	limit        rate.Limit
	burst        int
	maxFailures  int
	resetTimeout time.Duration

	mu       sync.Mutex
	hosts    map[string]*hostLimiter
	breakers map[string]*circuitBreaker
	logger   logging.Logger
	now      func() time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// New creates a limiter from the scraper configuration.
// A non-positive rate disables pacing but keeps the circuit breaker.
func New(cfg *config.Config, logger logging.Logger) *Limiter {
	s := cfg.Scraper

	limit := rate.Inf
	if s.RateLimitPerMinute > 0 {
		limit = rate.Limit(float64(s.RateLimitPerMinute) / 60.0)
	}
	burst := s.RateLimitBurst
	if burst < 1 {
		burst = 1
	}
	maxFailures := s.CircuitBreakerFailures
	if maxFailures < 1 {
		maxFailures = 5
	}
	reset := s.CircuitBreakerReset
	if reset <= 0 {
		reset = 30 * time.Second
	}

	l := &Limiter{
		limit:         limit,
		burst:         burst,
		maxFailures:   maxFailures,
		resetTimeout:  reset,
		hosts:         make(map[string]*hostLimiter),
		breakers:      make(map[string]*circuitBreaker),
		logger:        logging.ForComponent(logger, "rate_limiter"),
		now:           time.Now,
		cleanupTicker: time.NewTicker(5 * time.Minute),
		stopCleanup:   make(chan struct{}),
	}

	go l.cleanupRoutine()

	return l
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)

	l.mu.Lock()
	if err := l.checkCircuit(host); err != nil {
		l.mu.Unlock()
		l.logger.Debug("Request rejected by circuit breaker", map[string]interface{}{"host": host})
		return err
	}
	hl := l.host(host)
	hl.requests++
	hl.lastSeen = l.now()
	limiter := hl.limiter
	l.mu.Unlock()

	return limiter.Wait(ctx)
}

// RecordSuccess closes a half-open circuit for the host
func (l *Limiter) RecordSuccess(rawURL string) {
	host := hostOf(rawURL)

	l.mu.Lock()
	defer l.mu.Unlock()

	if cb, exists := l.breakers[host]; exists {
		if cb.state == CircuitHalfOpen {
			l.logger.Info("Circuit breaker closed after successful request", map[string]interface{}{"host": host})
		}
		cb.state = CircuitClosed
		cb.failureCount = 0
	}
}

// RecordFailure counts a failed request and opens the circuit after too many
func (l *Limiter) RecordFailure(rawURL string, err error) {
	host := hostOf(rawURL)

	l.mu.Lock()
	defer l.mu.Unlock()

	if hl, exists := l.hosts[host]; exists {
		hl.failures++
	}

	cb := l.breaker(host)
	cb.failureCount++
	cb.lastFailTime = l.now()

	// a failed probe while half-open reopens immediately
	if (cb.state == CircuitClosed && cb.failureCount >= l.maxFailures) || cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		fields := map[string]interface{}{
			"host":     host,
			"failures": cb.failureCount,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		l.logger.Warn("Circuit breaker opened due to failures", fields)
	}
}

// State returns the current circuit state for the host of rawURL
func (l *Limiter) State(rawURL string) CircuitState {
	host := hostOf(rawURL)

	l.mu.Lock()
	defer l.mu.Unlock()

	cb, exists := l.breakers[host]
	if !exists {
		return CircuitClosed
	}
	return cb.state
}

// Stats returns a snapshot for every host seen
func (l *Limiter) Stats() []HostStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool)
	for host := range l.hosts {
		seen[host] = true
	}
	for host := range l.breakers {
		seen[host] = true
	}

	stats := make([]HostStats, 0, len(seen))
	for host := range seen {
		s := HostStats{Host: host, CircuitState: CircuitClosed.String()}
		if hl, ok := l.hosts[host]; ok {
			s.Requests = hl.requests
			s.Failures = hl.failures
			s.LastSeen = hl.lastSeen
		}
		if cb, ok := l.breakers[host]; ok {
			s.CircuitState = cb.state.String()
			s.FailureCount = cb.failureCount
		}
		stats = append(stats, s)
	}
	return stats
}

// Stop stops the cleanup routine
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// checkCircuit must be called with l.mu held
func (l *Limiter) checkCircuit(host string) error {
	cb := l.breaker(host)

	switch cb.state {
	case CircuitOpen:
		until := cb.lastFailTime.Add(l.resetTimeout)
		if l.now().Before(until) {
			return &ErrCircuitOpen{Host: host, Until: until}
		}
		cb.state = CircuitHalfOpen
		l.logger.Info("Circuit breaker transitioned to half-open", map[string]interface{}{"host": host})
	}
	return nil
}

func (l *Limiter) host(host string) *hostLimiter {
	if hl, exists := l.hosts[host]; exists {
		return hl
	}

	hl := &hostLimiter{
		limiter:  rate.NewLimiter(l.limit, l.burst),
		lastSeen: l.now(),
	}
	l.hosts[host] = hl

	l.logger.Debug("Created new host rate limiter", map[string]interface{}{
		"host":  host,
		"rate":  float64(l.limit),
		"burst": l.burst,
	})
	return hl
}

func (l *Limiter) breaker(host string) *circuitBreaker {
	if cb, exists := l.breakers[host]; exists {
		return cb
	}
	cb := &circuitBreaker{state: CircuitClosed}
	l.breakers[host] = cb
	return cb
}

func (l *Limiter) cleanupRoutine() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.cleanup()
		case <-l.stopCleanup:
			l.cleanupTicker.Stop()
			return
		}
	}
}

// cleanup removes limiters idle for ten minutes and closed breakers with no recent failures
func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-10 * time.Minute)
	removed := 0

	for host, hl := range l.hosts {
		if hl.lastSeen.Before(cutoff) {
			delete(l.hosts, host)
			removed++
		}
	}
	for host, cb := range l.breakers {
		if cb.state == CircuitClosed && cb.lastFailTime.Before(cutoff) {
			delete(l.breakers, host)
		}
	}

	if removed > 0 {
		l.logger.Info("Cleaned up unused rate limiters", map[string]interface{}{"removed_count": removed})
	}
}

// hostOf extracts the lower-cased host from a URL string
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Hostname())
}
