package main

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// protocolErrorLogPeriod is the "once per subscriber per 5s" window (spec 7).
const protocolErrorLogPeriod = 5 * time.Second

// protocolErrorLimiter throttles "log once per subscriber per 5s" for
// malformed inbound JSON and unknown message tags (spec 7), grounded on the
// retrieval pack's per-key rate.Limiter pattern for exactly this kind of
// abuse-resistant logging.
type protocolErrorLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newProtocolErrorLimiter() *protocolErrorLimiter {
	return &protocolErrorLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (l *protocolErrorLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(protocolErrorLogPeriod), 1)
		l.limiters[key] = lim
	}
	return lim.Allow()
}

// forget drops a subscriber's limiter on disconnect so the map doesn't grow
// without bound across a long-running process.
func (l *protocolErrorLimiter) forget(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

var globalProtocolErrorLimiter = newProtocolErrorLimiter()

// protocolErrorCount is every protocol error observed, logged or not, so
// telemetry.go's counter reflects the true rate even while the log line
// itself is throttled.
var protocolErrorCount uint64

// logProtocolError logs a protocol error (spec 7) at most once per 5s per
// caller-supplied key; the connection is never dropped for this class of
// error.
func logProtocolError(key, format string, args ...interface{}) {
	atomic.AddUint64(&protocolErrorCount, 1)
	if !globalProtocolErrorLimiter.allow(key) {
		return
	}
	log.Printf("protocol error ["+key+"]: "+format, args...)
}
