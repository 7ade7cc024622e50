package ws

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/media"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

const audioBuffer = 64

var errOddPCM = errors.New("pcm payload is not a whole number of float32 samples")

// capturer is a media.Capturer fed by a client socket. Permission prompts go
// out as events and the client's answer is delivered through grant.
type capturer struct {
	userID     string
	sampleRate int
	emit       func(EventType, interface{})

	permission chan bool

	mu    sync.Mutex
	video *media.FrameBuffer
	audio *media.SampleQueue
}

var _ media.Capturer = (*capturer)(nil)

func newCapturer(userID string, sampleRate int, emit func(EventType, interface{})) *capturer {
	return &capturer{
		userID:     userID,
		sampleRate: sampleRate,
		emit:       emit,
		permission: make(chan bool, 1),
	}
}

func (c *capturer) RequestVideo(ctx context.Context) (media.VideoStream, error) {
	if err := c.ask(ctx, MediaVideo); err != nil {
		return nil, err
	}
	buf := media.NewFrameBuffer()
	c.mu.Lock()
	c.video = buf
	c.mu.Unlock()
	return buf, nil
}

func (c *capturer) RequestAudio(ctx context.Context) (media.AudioStream, error) {
	if err := c.ask(ctx, MediaAudio); err != nil {
		return nil, err
	}
	q := media.NewSampleQueue(c.sampleRate, audioBuffer)
	c.mu.Lock()
	c.audio = q
	c.mu.Unlock()
	return q, nil
}

func (c *capturer) ask(ctx context.Context, kind MediaKind) error {
	c.emit(EventPermissionRequest, PermissionRequest{Kind: kind})
	select {
	case granted := <-c.permission:
		if !granted {
			return domain.ErrPermissionDenied
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// grant delivers the client's permission answer. Answers nobody asked for
// are kept until the next prompt, and only the first one counts.
func (c *capturer) grant(granted bool) {
	select {
	case c.permission <- granted:
	default:
	}
}

func (c *capturer) pushFrame(f provider.Frame) {
	c.mu.Lock()
	v := c.video
	c.mu.Unlock()
	if v != nil {
		v.Push(f)
	}
}

// pushSamples reports false when no audio stream is open or its queue is full
func (c *capturer) pushSamples(samples []float64) bool {
	c.mu.Lock()
	a := c.audio
	c.mu.Unlock()
	if a == nil {
		return false
	}
	return a.Push(samples)
}

// close releases whatever streams are still open
func (c *capturer) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.video != nil {
		_ = c.video.Close()
	}
	if c.audio != nil {
		_ = c.audio.Close()
	}
}

// decodePCM reads little-endian float32 samples
func decodePCM(payload []byte) ([]float64, error) {
	if len(payload)%4 != 0 {
		return nil, errOddPCM
	}
	out := make([]float64, len(payload)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:])))
	}
	return out, nil
}
