package utils

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type PerformanceTracker struct {
	metrics map[string][]time.Duration
	mu      sync.Mutex
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{
		metrics: make(map[string][]time.Duration),
	}
}

func (pt *PerformanceTracker) TrackOperation(operation string, duration time.Duration) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.metrics == nil {
		pt.metrics = make(map[string][]time.Duration)
	}
	pt.metrics[operation] = append(pt.metrics[operation], duration)
}

// Time records the elapsed time since start under operation. Meant for defer.
func (pt *PerformanceTracker) Time(operation string, start time.Time) {
	pt.TrackOperation(operation, time.Since(start))
}

// Count returns how many samples were recorded for operation.
func (pt *PerformanceTracker) Count(operation string) int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return len(pt.metrics[operation])
}

// Total returns the summed duration recorded for operation.
func (pt *PerformanceTracker) Total(operation string) time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	var total time.Duration
	for _, d := range pt.metrics[operation] {
		total += d
	}
	return total
}

func (pt *PerformanceTracker) GenerateAggregateReport() string {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	ops := make([]string, 0, len(pt.metrics))
	for op := range pt.metrics {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var b strings.Builder
	b.WriteString("Performance Report:\n")

	for _, op := range ops {
		durations := pt.metrics[op]
		if len(durations) == 0 {
			continue
		}
		var total time.Duration
		for _, d := range durations {
			total += d
		}
		avg := total / time.Duration(len(durations))

		fmt.Fprintf(&b, "%s:\n", op)
		fmt.Fprintf(&b, "  Count: %d\n", len(durations))
		fmt.Fprintf(&b, "  Average: %v\n", avg)
		fmt.Fprintf(&b, "  Total: %v\n", total)
	}

	return b.String()
}
