package errors

import (
	"sync"
	"time"
)

type rateLimiter struct {
	lock   sync.Mutex
	silent time.Duration
	buffer map[string]*errorStats
}

func newRateLimiter(silent time.Duration) *rateLimiter {
	return &rateLimiter{
		silent: silent,
		buffer: map[string]*errorStats{},
	}
}

type errorStats struct {
	// total number of occurrences
	totalOccurCount int
	// occurrences since the last report went out
	occurCountSinceLastReport int
	// when the last report went out
	lastReportTime *time.Time
}

func (in *errorStats) Copy() *errorStats {
	return &errorStats{
		totalOccurCount:           in.totalOccurCount,
		occurCountSinceLastReport: in.occurCountSinceLastReport,
		lastReportTime:            in.lastReportTime,
	}
}

// StackBasedRateLimited decides whether an error originating from the given
// stack frame should be suppressed. At most one report per frame per silent
// window goes through.
func (b *rateLimiter) StackBasedRateLimited(stack string) (bool, *errorStats) {
	b.lock.Lock()
	defer b.lock.Unlock()
	stats := b.buffer[stack]
	if stats == nil {
		stats = &errorStats{}
		b.buffer[stack] = stats
	}
	cp := stats.Copy()
	now := time.Now()
	// never reported, let it through
	if stats.lastReportTime == nil {
		stats.totalOccurCount++
		stats.occurCountSinceLastReport = 0
		stats.lastReportTime = &now
		return false, cp
	}
	// reported recently, suppress
	if time.Since(*stats.lastReportTime) < b.silent {
		stats.totalOccurCount++
		stats.occurCountSinceLastReport++
		return true, cp
	}
	// silent window elapsed
	stats.totalOccurCount++
	stats.occurCountSinceLastReport = 0
	stats.lastReportTime = &now
	return false, cp
}
