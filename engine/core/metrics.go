package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// FrameMetrics keeps a rolling average of frame times and the frames per
// second over the last full second.
type FrameMetrics struct {
	mu sync.Mutex

	clock              *Clock
	last               time.Duration
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
	total              uint64
}

type FrameStats struct {
	Frames      uint64
	FPS         float64
	FrameTimeMS float64
}

func NewFrameMetrics() *FrameMetrics {
	c := NewClock()
	c.Start()
	return &FrameMetrics{clock: c}
}

// Tick records the end of a frame.
func (m *FrameMetrics) Tick() {
	m.clock.Update()
	now := m.clock.Elapsed()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.update(now - m.last)
	m.last = now
}

func (m *FrameMetrics) update(frameElapsed time.Duration) {
	// Calculate frame ms average
	frameMS := float64(frameElapsed) / float64(time.Millisecond)
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.msTimes[i]
		}
		m.msAvg = sum / float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
	m.total++
}

func (m *FrameMetrics) Stats() FrameStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FrameStats{
		Frames:      m.total,
		FPS:         m.fps,
		FrameTimeMS: m.msAvg,
	}
}
