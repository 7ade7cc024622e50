package rekognition

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

func testFrame() provider.Frame {
	return provider.Frame{Width: 1000, Height: 500, Image: make([]byte, 2048)}
}

func face(left, top, width, height, confidence float32) types.FaceDetail {
	return types.FaceDetail{
		BoundingBox: &types.BoundingBox{
			Left:   aws.Float32(left),
			Top:    aws.Float32(top),
			Width:  aws.Float32(width),
			Height: aws.Float32(height),
		},
		Confidence: aws.Float32(confidence),
	}
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, "us-east-1", DefaultConfig().Region)
}

func TestDetector_DetectFace(t *testing.T) {
	tests := []struct {
		name      string
		output    *rekognition.DetectFacesOutput
		err       error
		cfg       Config
		frame     provider.Frame
		wantFace  bool
		wantErrIs error
		check     func(*testing.T, *provider.Detection)
	}{
		{
			name: "converts ratios to pixels",
			output: &rekognition.DetectFacesOutput{FaceDetails: []types.FaceDetail{
				face(0.3, 0.2, 0.4, 0.5, 99.5),
			}},
			frame:    testFrame(),
			wantFace: true,
			check: func(t *testing.T, det *provider.Detection) {
				assert.InDelta(t, 300, det.Box.X, 1e-3)
				assert.InDelta(t, 100, det.Box.Y, 1e-3)
				assert.InDelta(t, 400, det.Box.Width, 1e-3)
				assert.InDelta(t, 250, det.Box.Height, 1e-3)
				assert.InDelta(t, 0.995, det.Confidence, 1e-4)
				assert.Equal(t, 1000, det.FrameWidth)
			},
		},
		{
			name: "highest confidence face wins",
			output: &rekognition.DetectFacesOutput{FaceDetails: []types.FaceDetail{
				face(0, 0, 0.1, 0.1, 80),
				face(0.5, 0.5, 0.2, 0.2, 95),
			}},
			frame:    testFrame(),
			wantFace: true,
			check: func(t *testing.T, det *provider.Detection) {
				assert.InDelta(t, 500, det.Box.X, 1e-3)
			},
		},
		{
			name:   "no faces",
			output: &rekognition.DetectFacesOutput{},
			frame:  testFrame(),
		},
		{
			name: "below minimum confidence",
			output: &rekognition.DetectFacesOutput{FaceDetails: []types.FaceDetail{
				face(0.3, 0.2, 0.4, 0.5, 40),
			}},
			cfg:   Config{MinConfidence: 0.5},
			frame: testFrame(),
		},
		{
			name:  "invalid parameter means no face",
			err:   &smithy.GenericAPIError{Code: errCodeInvalidParameter, Message: "no face"},
			frame: testFrame(),
		},
		{
			name:      "access denied",
			err:       &smithy.GenericAPIError{Code: errCodeAccessDenied},
			frame:     testFrame(),
			wantErrIs: ErrInvalidCredentials,
		},
		{
			name:      "throttled",
			err:       &smithy.GenericAPIError{Code: errCodeThrottling},
			frame:     testFrame(),
			wantErrIs: ErrThrottled,
		},
		{
			name:      "image too large",
			frame:     provider.Frame{Width: 10, Height: 10, Image: make([]byte, maxImageSize+1)},
			wantErrIs: ErrInvalidImage,
		},
		{
			name:  "frame not ready",
			frame: provider.Frame{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockRekognitionAPI{
				detectFacesFunc: func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
					assert.NotEmpty(t, params.Image.Bytes)
					if tt.err != nil {
						return nil, tt.err
					}
					return tt.output, nil
				},
			}
			d := NewDetectorWithAPI(api, tt.cfg)

			det, err := d.DetectFace(context.Background(), tt.frame)
			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErrIs), "got %v", err)
				return
			}
			require.NoError(t, err)
			if !tt.wantFace {
				assert.Nil(t, det)
				return
			}
			require.NotNil(t, det)
			tt.check(t, det)
		})
	}
}

func TestDetector_FrameNotReadySkipsCall(t *testing.T) {
	api := &mockRekognitionAPI{}
	_, err := NewDetectorWithAPI(api, DefaultConfig()).DetectFace(context.Background(), provider.Frame{})
	require.NoError(t, err)
	assert.Equal(t, 0, api.calls)
}
