// Package verification compares a live biometric sample against an enrolled
// template within a bounded session.
package verification

import (
	"errors"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/quality"
	"github.com/saturnino-fabrica-de-software/safishield/internal/vector"
)

// State is the verification lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// Reason explains a failed session
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonTimedOut         Reason = "timed out"
	ReasonMismatch         Reason = "mismatch"
	ReasonNoSpeech         Reason = "no speech detected"
	ReasonNoTemplate       Reason = "no template"
	ReasonCameraDenied     Reason = "camera access denied"
	ReasonMicrophoneDenied Reason = "microphone access denied"
)

// ErrInvalidTransition is returned for events the current state does not accept
var ErrInvalidTransition = errors.New("invalid verification transition")

// Sample is one tick's worth of face evidence. Descriptor is only set when the
// quality gate reported the frame ready and embedding succeeded.
type Sample struct {
	Assessment quality.Assessment
	Descriptor []float64
}

// Result is a snapshot of the session suitable for pushing to a client
type Result struct {
	Method          domain.Method `json:"method"`
	State           State         `json:"state"`
	Reason          Reason        `json:"reason,omitempty"`
	Message         string        `json:"message"`
	Threshold       float64       `json:"threshold"`
	Distance        *float64      `json:"distance,omitempty"`
	MatchConfidence int           `json:"match_confidence"`
}

// Session is the verification state machine. It is driven by explicit calls
// and reads no clock or storage of its own; threshold and template are fixed
// at Begin.
type Session struct {
	method     domain.Method
	timeout    time.Duration
	state      State
	reason     Reason
	message    string
	template   []float64
	threshold  float64
	deadline   time.Time
	distance   *float64
	confidence int
}

// NewSession creates an idle session
func NewSession(method domain.Method, timeout time.Duration) *Session {
	return &Session{method: method, timeout: timeout, state: StateIdle}
}

func (s *Session) Method() domain.Method { return s.method }
func (s *Session) State() State          { return s.state }
func (s *Session) Reason() Reason        { return s.reason }
func (s *Session) Threshold() float64    { return s.threshold }
func (s *Session) Deadline() time.Time   { return s.deadline }

// Terminal reports whether the session has a final outcome
func (s *Session) Terminal() bool {
	return s.state == StateSuccess || s.state == StateFailed
}

// Result snapshots the session for clients
func (s *Session) Result() Result {
	return Result{
		Method:          s.method,
		State:           s.state,
		Reason:          s.reason,
		Message:         s.message,
		Threshold:       s.threshold,
		Distance:        s.distance,
		MatchConfidence: s.confidence,
	}
}

func (s *Session) transitionErr(event string) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, s.state)
}

// Begin starts a session. A missing template fails it immediately.
func (s *Session) Begin(now time.Time, tmpl *domain.BiometricTemplate, settings domain.Settings) error {
	if s.state != StateIdle {
		return s.transitionErr("begin")
	}

	s.reason = ReasonNone
	s.distance = nil
	s.confidence = 0

	if s.method == domain.MethodVoice {
		s.threshold = domain.VoiceThreshold
	} else {
		s.threshold = settings.EffectiveFaceThreshold()
	}

	if tmpl == nil || len(tmpl.Descriptor) == 0 {
		s.fail(ReasonNoTemplate, "No enrolled template found. Please enroll first.")
		return nil
	}

	s.template = append([]float64(nil), tmpl.Descriptor...)
	s.deadline = now.Add(s.timeout)
	s.state = StatePending
	if s.method == domain.MethodVoice {
		s.message = "Recording... speak now."
	} else {
		s.message = quality.StatusNoFace.Message()
	}
	return nil
}

// PermissionDenied fails a pending session when media access is refused
func (s *Session) PermissionDenied() error {
	if s.state != StatePending {
		return s.transitionErr("permission denied")
	}
	if s.method == domain.MethodVoice {
		s.fail(ReasonMicrophoneDenied, "Microphone permission denied. Please enable microphone access.")
	} else {
		s.fail(ReasonCameraDenied, "Camera permission denied. Please enable camera access.")
	}
	return nil
}

// Tick applies one face sample. Once the session is final, late ticks are
// ignored and the current state is returned unchanged.
func (s *Session) Tick(now time.Time, sample Sample) (State, error) {
	if s.state != StatePending {
		return s.state, nil
	}
	if s.method != domain.MethodFace {
		return s.state, s.transitionErr("tick")
	}
	if s.Expire(now) {
		return s.state, nil
	}

	if !sample.Assessment.Ready || len(sample.Descriptor) == 0 {
		s.message = sample.Assessment.Status.Message()
		return s.state, nil
	}

	d, _ := vector.Compare(s.template, sample.Descriptor)
	s.distance = &d
	s.confidence = vector.MatchConfidence(d, s.threshold)

	if d < s.threshold {
		s.succeed()
		return s.state, nil
	}

	s.message = fmt.Sprintf("Match confidence %d%%. Hold still.", s.confidence)
	return s.state, nil
}

// CompleteVoice applies the single voice comparison at the end of recording
func (s *Session) CompleteVoice(descriptor []float64, err error) error {
	if s.state != StatePending {
		return s.transitionErr("complete voice")
	}
	if s.method != domain.MethodVoice {
		return s.transitionErr("complete voice")
	}

	// any extraction failure is reported to the user as no speech
	if err != nil || len(descriptor) == 0 {
		s.fail(ReasonNoSpeech, "No speech detected during verification.")
		return nil
	}

	d, _ := vector.Compare(s.template, descriptor)
	s.distance = &d
	s.confidence = vector.MatchConfidence(d, s.threshold)

	if d < s.threshold {
		s.succeed()
		return nil
	}
	s.fail(ReasonMismatch, "Voice mismatch detected.")
	return nil
}

// Expire fails a pending session whose deadline has passed. It reports
// whether the session timed out on this call.
func (s *Session) Expire(now time.Time) bool {
	if s.state != StatePending || now.Before(s.deadline) {
		return false
	}
	s.fail(ReasonTimedOut, "Verification timed out.")
	return true
}

// Cancel abandons a pending session without an outcome
func (s *Session) Cancel() {
	if s.state == StatePending {
		s.Reset()
	}
}

// Reset returns the session to idle so it can be started again
func (s *Session) Reset() {
	s.state = StateIdle
	s.reason = ReasonNone
	s.message = ""
	s.template = nil
	s.distance = nil
	s.confidence = 0
	s.deadline = time.Time{}
}

func (s *Session) succeed() {
	s.state = StateSuccess
	s.reason = ReasonNone
	s.message = "Verification successful."
}

func (s *Session) fail(r Reason, msg string) {
	s.state = StateFailed
	s.reason = r
	s.message = msg
}
