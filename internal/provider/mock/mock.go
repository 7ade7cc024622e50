package mock

import (
	"context"
	"crypto/sha256"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
	"github.com/saturnino-fabrica-de-software/safishield/internal/vector"
)

const embeddingDimension = 128

// Provider implementa provider.FaceBackend para testes e desenvolvimento.
// Frames whose pixels are all zero are treated as containing no face.
type Provider struct {
	confidence float64
	widthRatio float64
	embedding  []float64
}

// Option configures the mock provider
type Option func(*Provider)

// WithConfidence overrides the detection confidence (default 0.99)
func WithConfidence(c float64) Option {
	return func(p *Provider) { p.confidence = c }
}

// WithWidthRatio overrides the centered box width as a share of the frame (default 0.4)
func WithWidthRatio(r float64) Option {
	return func(p *Provider) { p.widthRatio = r }
}

// WithEmbedding makes every embedding return a copy of v instead of the hash-derived vector
func WithEmbedding(v []float64) Option {
	return func(p *Provider) { p.embedding = v }
}

// New cria uma nova instância do MockProvider
func New(opts ...Option) *Provider {
	p := &Provider{confidence: 0.99, widthRatio: 0.4}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DetectFace simula detecção com uma face centralizada
func (p *Provider) DetectFace(ctx context.Context, frame provider.Frame) (*provider.Detection, error) {
	if !frame.Ready() || blank(frame.Image) {
		return nil, nil
	}

	w := float64(frame.Width) * p.widthRatio
	h := float64(frame.Height) * p.widthRatio
	return &provider.Detection{
		Box: provider.BoundingBox{
			X:      (float64(frame.Width) - w) / 2,
			Y:      (float64(frame.Height) - h) / 2,
			Width:  w,
			Height: h,
		},
		Confidence:  p.confidence,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Frame:       frame,
	}, nil
}

// EmbedFace gera embedding determinístico baseado no hash da imagem
func (p *Provider) EmbedFace(ctx context.Context, det *provider.Detection) ([]float64, error) {
	if p.embedding != nil {
		out := make([]float64, len(p.embedding))
		copy(out, p.embedding)
		return out, nil
	}
	return generateEmbedding(det.Frame.Image), nil
}

func blank(image []byte) bool {
	for _, b := range image {
		if b != 0 {
			return false
		}
	}
	return true
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	return vector.Normalize(embedding)
}

var _ provider.FaceBackend = (*Provider)(nil)
