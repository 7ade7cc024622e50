package provider

import (
	"context"
)

// Frame is a single still captured from a video stream.
type Frame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Image  []byte `json:"image"`
}

// Ready reports whether the frame carries pixel data that can be analysed.
func (f Frame) Ready() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Image) > 0
}

// BoundingBox represents the face area in pixels of the source frame
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenterX returns the horizontal center of the box
func (b BoundingBox) CenterX() float64 {
	return b.X + b.Width/2
}

// Detection is the best face found in a frame
type Detection struct {
	Box         BoundingBox `json:"box"`
	Confidence  float64     `json:"confidence"`
	FrameWidth  int         `json:"frame_width"`
	FrameHeight int         `json:"frame_height"`

	// Frame is kept so an embedder can crop or re-submit the source image.
	Frame Frame `json:"-"`
	// Embedding is set by backends that produce the descriptor during detection.
	Embedding []float64 `json:"-"`
}

// FaceDetector finds the most prominent face in a frame.
// A nil detection with a nil error means no face was found.
type FaceDetector interface {
	DetectFace(ctx context.Context, frame Frame) (*Detection, error)
}

// FaceEmbedder turns a detection into a fixed-length descriptor
type FaceEmbedder interface {
	EmbedFace(ctx context.Context, det *Detection) ([]float64, error)
}

// FaceBackend is the opaque face model consumed by the extractor
type FaceBackend interface {
	FaceDetector
	FaceEmbedder
}

type composite struct {
	FaceDetector
	FaceEmbedder
}

// Compose pairs a detector with an embedder from a different backend
func Compose(d FaceDetector, e FaceEmbedder) FaceBackend {
	return composite{FaceDetector: d, FaceEmbedder: e}
}

// MFCCParams configures cepstral feature extraction
type MFCCParams struct {
	SampleRate   int `json:"sample_rate"`
	FrameSize    int `json:"frame_size"`
	StepSize     int `json:"step_size"`
	Filters      int `json:"filters"`
	Coefficients int `json:"coefficients"`
}

// DefaultMFCCParams returns 1024/512 framing with 40 mel filters and 13 coefficients
func DefaultMFCCParams(sampleRate int) MFCCParams {
	return MFCCParams{
		SampleRate:   sampleRate,
		FrameSize:    1024,
		StepSize:     512,
		Filters:      40,
		Coefficients: 13,
	}
}

// MFCCBackend computes one coefficient row per analysis frame.
// An empty matrix means the input was too short to frame.
type MFCCBackend interface {
	ExtractMFCC(samples []float64, params MFCCParams) ([][]float64, error)
}
