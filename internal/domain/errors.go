package domain

import (
	"fmt"
)

// AppError carries an API error code and HTTP status
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies produced by WithError still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithError returns a copy wrapping err
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Capture errors
	ErrPermissionDenied = &AppError{
		Code:       "PERMISSION_DENIED",
		Message:    "Camera or microphone access was denied",
		StatusCode: 403,
	}

	ErrSessionActive = &AppError{
		Code:       "SESSION_ACTIVE",
		Message:    "Another capture session is already active for this user",
		StatusCode: 409,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Capture session not found",
		StatusCode: 404,
	}

	// Extraction errors
	ErrNoDetection = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the frame",
		StatusCode: 422,
	}

	ErrNoSpeechDetected = &AppError{
		Code:       "NO_SPEECH_DETECTED",
		Message:    "No speech detected in the recording",
		StatusCode: 422,
	}

	ErrExtractionFailure = &AppError{
		Code:       "EXTRACTION_FAILURE",
		Message:    "Feature extraction failed",
		StatusCode: 502,
	}

	ErrDimensionMismatch = &AppError{
		Code:       "DIMENSION_MISMATCH",
		Message:    "Enrolled and live descriptors have different lengths",
		StatusCode: 422,
	}

	// Verification errors
	ErrTimeout = &AppError{
		Code:       "VERIFICATION_TIMEOUT",
		Message:    "Verification timed out",
		StatusCode: 408,
	}

	ErrNotEnrolled = &AppError{
		Code:       "NOT_ENROLLED",
		Message:    "No biometric template enrolled for this method",
		StatusCode: 404,
	}

	ErrInvalidMethod = &AppError{
		Code:       "INVALID_METHOD",
		Message:    "Biometric method must be face or voice",
		StatusCode: 422,
	}

	ErrInvalidThreshold = &AppError{
		Code:       "INVALID_THRESHOLD",
		Message:    "Face threshold must be between 0.30 and 0.60",
		StatusCode: 422,
	}

	// Transaction errors
	ErrTransactionBlocked = &AppError{
		Code:       "TRANSACTION_BLOCKED",
		Message:    "Transaction blocked, high risk detected",
		StatusCode: 403,
	}

	ErrChallengeNotFound = &AppError{
		Code:       "CHALLENGE_NOT_FOUND",
		Message:    "Pending challenge not found or already resolved",
		StatusCode: 404,
	}

	ErrChallengeFailed = &AppError{
		Code:       "CHALLENGE_FAILED",
		Message:    "Challenge verification failed, transaction blocked",
		StatusCode: 403,
	}

	ErrInsufficientFunds = &AppError{
		Code:       "INSUFFICIENT_FUNDS",
		Message:    "Invalid amount or insufficient funds",
		StatusCode: 422,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many attempts, try again later",
		StatusCode: 429,
	}
)
