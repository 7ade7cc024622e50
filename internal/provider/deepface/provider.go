package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels
)

// Provider implements provider.FaceBackend using the DeepFace API.
// Detection and embedding come from the same /represent call.
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// DetectFace returns the largest face DeepFace finds, with its embedding attached
func (p *Provider) DetectFace(ctx context.Context, frame provider.Frame) (*provider.Detection, error) {
	if !frame.Ready() {
		return nil, nil
	}

	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(frame.Image))
	if err != nil {
		if isNoFace(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("detect face: %w", err)
	}

	best := -1
	for i, result := range resp.Results {
		if best < 0 || result.FacialArea.area() > resp.Results[best].FacialArea.area() {
			best = i
		}
	}
	if best < 0 {
		return nil, nil
	}

	result := resp.Results[best]
	confidence := result.FaceConfidence
	if confidence <= 0 {
		confidence = calculateConfidence(float64(result.FacialArea.area()))
	}

	return &provider.Detection{
		Box: provider.BoundingBox{
			X:      float64(result.FacialArea.X),
			Y:      float64(result.FacialArea.Y),
			Width:  float64(result.FacialArea.W),
			Height: float64(result.FacialArea.H),
		},
		Confidence:  confidence,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Frame:       frame,
		Embedding:   result.Embedding,
	}, nil
}

// calculateConfidence estimates confidence based on face area
// Older DeepFace releases don't return face_confidence, so we estimate based on face size
func calculateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5 // Low confidence for very small faces
	}
	// Scale from 0.7 to 0.99 based on face area
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

// EmbedFace returns the embedding captured during detection, or re-submits the frame
func (p *Provider) EmbedFace(ctx context.Context, det *provider.Detection) ([]float64, error) {
	if det == nil {
		return nil, ErrNoFaceInResponse
	}
	if len(det.Embedding) > 0 {
		return det.Embedding, nil
	}

	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(det.Frame.Image))
	if err != nil {
		return nil, fmt.Errorf("embed face: %w", err)
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return nil, ErrNoFaceInResponse
	}

	return resp.Results[0].Embedding, nil
}

// Ping checks DeepFace availability
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Ensure Provider implements provider.FaceBackend
var _ provider.FaceBackend = (*Provider)(nil)
