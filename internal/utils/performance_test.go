package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceTracker_Report(t *testing.T) {
	pt := NewPerformanceTracker()
	pt.TrackOperation("fetch", 2*time.Second)
	pt.TrackOperation("fetch", 4*time.Second)
	pt.TrackOperation("merge", time.Millisecond)

	assert.Equal(t, 2, pt.Count("fetch"))
	assert.Equal(t, 0, pt.Count("persist"))
	assert.Equal(t, 6*time.Second, pt.Total("fetch"))
	assert.Zero(t, pt.Total("persist"))

	report := pt.GenerateAggregateReport()
	assert.Contains(t, report, "fetch:\n  Count: 2\n  Average: 3s\n  Total: 6s")
	assert.Less(t, strings.Index(report, "fetch:"), strings.Index(report, "merge:"))
}

func TestPerformanceTracker_Time(t *testing.T) {
	pt := &PerformanceTracker{}
	pt.Time("run", time.Now().Add(-time.Second))
	assert.Equal(t, 1, pt.Count("run"))
}
