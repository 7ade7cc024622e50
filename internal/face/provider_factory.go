package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/safishield/internal/config"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider/rekognition"
)

// ProviderType defines supported face backend types
type ProviderType string

const (
	// ProviderTypeMock is the deterministic in-process backend (dev/test)
	ProviderTypeMock ProviderType = "mock"
	// ProviderTypeDeepFace runs detection and embedding on a DeepFace service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition detects with AWS Rekognition and embeds with DeepFace
	ProviderTypeRekognition ProviderType = "rekognition"
)

// NewFaceBackend creates a FaceBackend based on configuration
//
// Environment variables:
//   - FACE_PROVIDER: "mock", "deepface" or "rekognition" (default: "mock")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY: via AWS SDK credential chain
func NewFaceBackend(ctx context.Context, cfg *config.Config) (provider.FaceBackend, error) {
	switch ProviderType(cfg.FaceProvider) {
	case ProviderTypeMock, "":
		return mock.New(), nil

	case ProviderTypeDeepFace:
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeRekognition:
		detector, err := rekognition.NewDetector(ctx, rekognition.Config{
			Region:        cfg.AWSRegion,
			MinConfidence: 0.5,
		})
		if err != nil {
			return nil, fmt.Errorf("create rekognition detector: %w", err)
		}
		// Rekognition has no embedding API; descriptors come from DeepFace
		return provider.Compose(detector, createDeepFaceProvider(cfg)), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.FaceProvider, ProviderTypeMock, ProviderTypeDeepFace, ProviderTypeRekognition)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}

	return deepface.NewProvider(deepfaceConfig)
}
