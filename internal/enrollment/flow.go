// Package enrollment drives the capture of a new biometric template.
package enrollment

import (
	"errors"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/quality"
)

// State is the enrollment lifecycle state
type State string

const (
	StateAwaitingPermission State = "awaiting_permission"
	StateSampling           State = "sampling"
	StateCapturing          State = "capturing"
	StateEnrolled           State = "enrolled"
	StateError              State = "error"
	StateCancelled          State = "cancelled"
)

// ErrInvalidTransition is returned for events the current state does not accept
var ErrInvalidTransition = errors.New("invalid enrollment transition")

const (
	msgInitializing  = "Initializing camera..."
	msgCapturing     = "Capturing..."
	msgCaptureFailed = "Capture failed. Please try again."
	msgRecording     = "Recording... speak now."
	msgVoiceFailed   = "Could not capture your voice. Please try again."
	msgEnrolled      = "Enrollment complete."
	msgCancelled     = "Enrollment cancelled."
)

// Flow is the enrollment state machine. It performs no I/O; a Runner feeds it
// permission answers, quality assessments and extraction results.
type Flow struct {
	method   domain.Method
	state    State
	message  string
	last     quality.Assessment
	template *domain.BiometricTemplate
	now      func() time.Time
}

// NewFlow creates an idle enrollment flow
func NewFlow(method domain.Method, now func() time.Time) *Flow {
	if now == nil {
		now = time.Now
	}
	msg := msgInitializing
	if method == domain.MethodVoice {
		msg = "Initializing microphone..."
	}
	return &Flow{method: method, state: StateAwaitingPermission, message: msg, now: now}
}

func (f *Flow) Method() domain.Method               { return f.method }
func (f *Flow) State() State                        { return f.state }
func (f *Flow) Message() string                     { return f.message }
func (f *Flow) LastAssessment() quality.Assessment  { return f.last }
func (f *Flow) Template() *domain.BiometricTemplate { return f.template }

// Terminal reports whether the flow has finished
func (f *Flow) Terminal() bool {
	switch f.state {
	case StateEnrolled, StateError, StateCancelled:
		return true
	}
	return false
}

func (f *Flow) transitionErr(event string) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, f.state)
}

// PermissionGranted moves face enrollment to sampling. Voice has no quality
// ladder and starts recording straight away.
func (f *Flow) PermissionGranted() error {
	if f.state != StateAwaitingPermission {
		return f.transitionErr("permission granted")
	}
	if f.method == domain.MethodVoice {
		f.state = StateCapturing
		f.message = msgRecording
		return nil
	}
	f.state = StateSampling
	f.message = quality.StatusNoFace.Message()
	return nil
}

// PermissionDenied moves the flow to the denied state
func (f *Flow) PermissionDenied() error {
	if f.state != StateAwaitingPermission {
		return f.transitionErr("permission denied")
	}
	f.state = StateError
	if f.method == domain.MethodVoice {
		f.message = "Microphone permission denied. Please enable microphone access."
	} else {
		f.message = "Camera permission denied. Please enable camera access."
	}
	return nil
}

// Tick records one quality assessment. It returns true when the frame is ready
// and the flow has moved to capturing.
func (f *Flow) Tick(a quality.Assessment) (bool, error) {
	if f.state != StateSampling {
		return false, f.transitionErr("tick")
	}
	f.last = a
	if !a.Ready {
		f.message = a.Status.Message()
		return false, nil
	}
	f.state = StateCapturing
	f.message = msgCapturing
	return true, nil
}

// Captured finishes a capture attempt. A face failure goes back to sampling
// with a retry message; a voice failure ends the flow.
func (f *Flow) Captured(descriptor []float64, err error) error {
	if f.state != StateCapturing {
		return f.transitionErr("captured")
	}

	if err != nil || len(descriptor) == 0 {
		if f.method == domain.MethodVoice {
			f.state = StateError
			f.message = msgVoiceFailed
			if errors.Is(err, domain.ErrNoSpeechDetected) {
				f.message = "Could not hear speech. Please try again."
			}
			return nil
		}
		f.state = StateSampling
		f.message = msgCaptureFailed
		return nil
	}

	f.template = &domain.BiometricTemplate{
		Method:     f.method,
		Descriptor: descriptor,
		EnrolledOn: f.now().UTC(),
	}
	f.state = StateEnrolled
	f.message = msgEnrolled
	return nil
}

// Fail ends the flow with a message, e.g. when the template cannot be stored
func (f *Flow) Fail(message string) {
	if f.Terminal() {
		return
	}
	f.state = StateError
	f.message = message
}

// Cancel stops a running flow; finished flows are left untouched
func (f *Flow) Cancel() {
	if f.Terminal() {
		return
	}
	f.state = StateCancelled
	f.message = msgCancelled
	f.template = nil
}
