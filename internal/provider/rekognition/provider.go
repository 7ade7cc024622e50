package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
const maxImageSize = 5 * 1024 * 1024

// Detector implements provider.FaceDetector using AWS Rekognition DetectFaces.
// Rekognition does not expose embeddings, so it is composed with a separate embedder.
type Detector struct {
	api    API
	config Config
}

var _ provider.FaceDetector = (*Detector)(nil)

// NewDetector creates a detector backed by a real Rekognition client
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(client, cfg), nil
}

// NewDetectorWithAPI creates a detector over any API implementation (used in tests)
func NewDetectorWithAPI(api API, cfg Config) *Detector {
	return &Detector{api: api, config: cfg}
}

// DetectFace returns the highest-confidence face. Bounding boxes are converted
// from Rekognition's frame ratios to pixels and confidence from percent to 0-1.
func (d *Detector) DetectFace(ctx context.Context, frame provider.Frame) (*provider.Detection, error) {
	if !frame.Ready() {
		return nil, nil
	}
	if len(frame.Image) > maxImageSize {
		return nil, fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(frame.Image), maxImageSize)
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: frame.Image},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		mapped, noFace := parseError(err)
		if noFace {
			return nil, nil
		}
		return nil, fmt.Errorf("detect faces: %w", mapped)
	}

	var best *types.FaceDetail
	for i := range output.FaceDetails {
		detail := &output.FaceDetails[i]
		if detail.BoundingBox == nil || detail.Confidence == nil {
			continue
		}
		if best == nil || *detail.Confidence > *best.Confidence {
			best = detail
		}
	}
	if best == nil {
		return nil, nil
	}

	confidence := float64(*best.Confidence) / 100
	if confidence < d.config.MinConfidence {
		return nil, nil
	}

	w, h := float64(frame.Width), float64(frame.Height)
	box := best.BoundingBox
	return &provider.Detection{
		Box: provider.BoundingBox{
			X:      float64(deref(box.Left)) * w,
			Y:      float64(deref(box.Top)) * h,
			Width:  float64(deref(box.Width)) * w,
			Height: float64(deref(box.Height)) * h,
		},
		Confidence:  confidence,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Frame:       frame,
	}, nil
}

func deref(f *float32) float32 {
	if f == nil {
		return 0
	}
	return *f
}
