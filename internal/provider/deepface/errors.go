package deepface

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
	ErrNoFaceInResponse    = errors.New("no face data in deepface response")
)

// StatusError is returned when DeepFace answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// ClientError reports whether the request itself was rejected (4xx) and must not be retried
func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// noFace matches the message DeepFace uses when enforce_detection rejects an image.
func (e *StatusError) noFace() bool {
	return e.ClientError() && strings.Contains(strings.ToLower(e.Body), "could not be detected")
}

func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.ClientError()
}

func isNoFace(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.noFace()
}
