package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeInvalidParameter = "InvalidParameterException"
	errCodeInvalidImage     = "InvalidImageFormatException"
	errCodeImageTooLarge    = "ImageTooLargeException"
	errCodeThroughput       = "ProvisionedThroughputExceededException"
	errCodeThrottling       = "ThrottlingException"
)

// API is the subset of the Rekognition client used by the detector
type API interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// NewClient creates a Rekognition client using the AWS default credential chain
func NewClient(ctx context.Context, cfg Config) (*rekognition.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return rekognition.NewFromConfig(awsCfg), nil
}

// parseError maps AWS API errors to package errors.
// noFace is true when Rekognition refused the image in a way that means "nothing to detect".
func parseError(err error) (mapped error, noFace bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err, false
	}

	switch apiErr.ErrorCode() {
	case errCodeAccessDenied:
		return fmt.Errorf("detect faces: %w", ErrInvalidCredentials), false
	case errCodeInvalidParameter:
		return nil, true
	case errCodeInvalidImage, errCodeImageTooLarge:
		return fmt.Errorf("%w: %s", ErrInvalidImage, apiErr.ErrorMessage()), false
	case errCodeThroughput, errCodeThrottling:
		return fmt.Errorf("detect faces: %w", ErrThrottled), false
	}

	return err, false
}
