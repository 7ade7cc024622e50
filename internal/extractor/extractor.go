// Package extractor turns video frames and audio windows into fixed-length descriptors.
package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
	"github.com/saturnino-fabrica-de-software/safishield/internal/vector"
)

// FaceSample is a descriptor together with the detection it came from
type FaceSample struct {
	Descriptor []float64
	Detection  *provider.Detection
}

// Extractor wraps the opaque face and MFCC backends. It neither persists nor logs.
type Extractor struct {
	face provider.FaceBackend
	mfcc provider.MFCCBackend
}

// New creates an extractor over the given backends
func New(face provider.FaceBackend, mfcc provider.MFCCBackend) *Extractor {
	return &Extractor{face: face, mfcc: mfcc}
}

// DetectFace runs only the detector. A nil detection means no face; backend
// failures are wrapped in ErrExtractionFailure.
func (e *Extractor) DetectFace(ctx context.Context, frame provider.Frame) (*provider.Detection, error) {
	if !frame.Ready() {
		return nil, nil
	}

	det, err := e.face.DetectFace(ctx, frame)
	if err != nil {
		return nil, domain.ErrExtractionFailure.WithError(fmt.Errorf("detect face: %w", err))
	}
	if det != nil {
		if det.FrameWidth == 0 {
			det.FrameWidth = frame.Width
		}
		if det.FrameHeight == 0 {
			det.FrameHeight = frame.Height
		}
	}

	return det, nil
}

// Embed produces the descriptor for a detection returned by DetectFace
func (e *Extractor) Embed(ctx context.Context, det *provider.Detection) (*FaceSample, error) {
	if det == nil {
		return nil, domain.ErrNoDetection
	}

	descriptor, err := e.face.EmbedFace(ctx, det)
	if err != nil {
		return nil, domain.ErrExtractionFailure.WithError(fmt.Errorf("embed face: %w", err))
	}
	if len(descriptor) == 0 {
		return nil, domain.ErrExtractionFailure.WithError(fmt.Errorf("embed face: empty descriptor"))
	}

	return &FaceSample{Descriptor: descriptor, Detection: det}, nil
}

// ExtractFace detects and embeds in one step. ErrNoDetection is returned when
// the frame is not ready or no face is found.
func (e *Extractor) ExtractFace(ctx context.Context, frame provider.Frame) (*FaceSample, error) {
	det, err := e.DetectFace(ctx, frame)
	if err != nil {
		return nil, err
	}
	if det == nil {
		return nil, domain.ErrNoDetection
	}
	return e.Embed(ctx, det)
}

// ExtractVoice accumulates audio for exactly duration, then reduces it to a
// unit-length averaged MFCC vector. observe, when set, sees every chunk as it
// arrives so callers can report sound level. A closed channel does not end the
// window early.
func (e *Extractor) ExtractVoice(ctx context.Context, chunks <-chan []float64, sampleRate int, duration time.Duration, observe func([]float64)) ([]float64, error) {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	var samples []float64
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return e.VoiceVector(samples, sampleRate)
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			samples = append(samples, chunk...)
			if observe != nil {
				observe(chunk)
			}
		}
	}
}

// VoiceVector reduces captured samples to the averaged, normalized MFCC descriptor
func (e *Extractor) VoiceVector(samples []float64, sampleRate int) ([]float64, error) {
	if len(samples) == 0 {
		return nil, domain.ErrNoSpeechDetected
	}

	rows, err := e.mfcc.ExtractMFCC(samples, provider.DefaultMFCCParams(sampleRate))
	if err != nil {
		return nil, domain.ErrExtractionFailure.WithError(fmt.Errorf("extract mfcc: %w", err))
	}
	if len(rows) == 0 {
		return nil, domain.ErrNoSpeechDetected
	}

	mean := vector.Mean(rows)
	if len(mean) == 0 {
		return nil, domain.ErrNoSpeechDetected
	}

	return vector.Normalize(mean), nil
}
