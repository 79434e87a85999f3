package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameMetricsAverage(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.update(10 * time.Millisecond)
	}
	stats := m.Stats()
	assert.Equal(t, uint64(AVG_COUNT), stats.Frames)
	assert.InDelta(t, 10.0, stats.FrameTimeMS, 0.001)
}

func TestFrameMetricsFPS(t *testing.T) {
	m := NewFrameMetrics()
	// 101 frames of 10ms crosses the one second boundary once.
	for i := 0; i < 101; i++ {
		m.update(10 * time.Millisecond)
	}
	assert.InDelta(t, 100.0, m.Stats().FPS, 0.001)
}

func TestWarnOnce(t *testing.T) {
	assert.True(t, WarnOnce("metrics-test-key", "first %d", 1))
	assert.False(t, WarnOnce("metrics-test-key", "second %d", 2))
	assert.True(t, WarnOnce("metrics-test-key-2", "other"))
}
