// Package media defines the capture contract between live sessions and camera or microphone sources.
package media

import (
	"context"
	"sync"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

// VideoStream exposes the most recent frame of a camera feed
type VideoStream interface {
	// Frame returns the latest frame, false until the first one arrives.
	Frame() (provider.Frame, bool)
	Close() error
}

// AudioStream delivers PCM chunks in [-1, 1] at a fixed sample rate
type AudioStream interface {
	Samples() <-chan []float64
	SampleRate() int
	Close() error
}

// Capturer grants media streams. Both calls block until the user answers the
// permission prompt and return domain.ErrPermissionDenied on refusal.
type Capturer interface {
	RequestVideo(ctx context.Context) (VideoStream, error)
	RequestAudio(ctx context.Context) (AudioStream, error)
}

// Lease releases a resource exactly once, whichever exit path gets there first
type Lease struct {
	once    sync.Once
	release func() error
	err     error
}

// NewLease wraps release so it runs at most once
func NewLease(release func() error) *Lease {
	return &Lease{release: release}
}

// Release is idempotent and returns the first release error on every call
func (l *Lease) Release() error {
	l.once.Do(func() {
		if l.release != nil {
			l.err = l.release()
		}
	})
	return l.err
}

// Exclusive admits at most one capture session per user
type Exclusive struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewExclusive creates an empty session guard
func NewExclusive() *Exclusive {
	return &Exclusive{active: make(map[string]struct{})}
}

// Acquire returns a lease that frees the slot, or ErrSessionActive if one is held
func (e *Exclusive) Acquire(userID string) (*Lease, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.active[userID]; busy {
		return nil, domain.ErrSessionActive
	}
	e.active[userID] = struct{}{}

	return NewLease(func() error {
		e.mu.Lock()
		delete(e.active, userID)
		e.mu.Unlock()
		return nil
	}), nil
}

// Active reports whether a user currently holds a capture slot
func (e *Exclusive) Active(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[userID]
	return ok
}
