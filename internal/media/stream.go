package media

import (
	"sync"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

// FrameBuffer is a VideoStream holding only the newest pushed frame
type FrameBuffer struct {
	mu     sync.RWMutex
	frame  provider.Frame
	has    bool
	closed bool
}

var _ VideoStream = (*FrameBuffer)(nil)

// NewFrameBuffer creates an empty latest-frame buffer
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Push replaces the current frame. Pushes after Close are dropped.
func (b *FrameBuffer) Push(f provider.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.frame = f
	b.has = true
}

// Frame returns the most recent frame, if any
func (b *FrameBuffer) Frame() (provider.Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return provider.Frame{}, false
	}
	return b.frame, b.has
}

func (b *FrameBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.frame = provider.Frame{}
	b.has = false
	return nil
}

func (b *FrameBuffer) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// SampleQueue is an AudioStream fed by Push. The channel closes with the stream.
type SampleQueue struct {
	mu     sync.Mutex
	ch     chan []float64
	rate   int
	closed bool
}

var _ AudioStream = (*SampleQueue)(nil)

// NewSampleQueue creates a queue holding up to buffer chunks
func NewSampleQueue(sampleRate, buffer int) *SampleQueue {
	return &SampleQueue{ch: make(chan []float64, buffer), rate: sampleRate}
}

// Push enqueues a chunk without blocking. It reports false when the chunk was
// dropped because the queue is full or closed.
func (q *SampleQueue) Push(samples []float64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- samples:
		return true
	default:
		return false
	}
}

func (q *SampleQueue) Samples() <-chan []float64 {
	return q.ch
}

func (q *SampleQueue) SampleRate() int {
	return q.rate
}

func (q *SampleQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}

func (q *SampleQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
