package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a security log entry
type EventType string

const (
	EventEnrollmentSuccess        EventType = "EnrollmentSuccess"
	EventVoiceEnrollmentSuccess   EventType = "VoiceEnrollmentSuccess"
	EventAnomalyDetected          EventType = "AnomalyDetected"
	EventVerificationSuccess      EventType = "VerificationSuccess"
	EventVoiceVerificationSuccess EventType = "VoiceVerificationSuccess"
	EventVerificationFailure      EventType = "VerificationFailure"
	EventVoiceVerificationFailure EventType = "VoiceVerificationFailure"
	EventOtpInitiated             EventType = "OtpInitiated"
	EventOtpSuccess               EventType = "OtpSuccess"
	EventOtpFailure               EventType = "OtpFailure"
	EventPinSuccess               EventType = "PinSuccess"
	EventPinFailure               EventType = "PinFailure"
	EventTransactionBlocked       EventType = "TransactionBlocked"
	EventTemplateReset            EventType = "TemplateReset"
)

// SecurityEvent is an append-only log entry. Entries are never mutated once written.
type SecurityEvent struct {
	ID          uuid.UUID      `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        EventType      `json:"type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
}

// EnrollmentEvent returns the success event type for a modality.
func EnrollmentEvent(m Method) EventType {
	if m == MethodVoice {
		return EventVoiceEnrollmentSuccess
	}
	return EventEnrollmentSuccess
}

// VerificationEvent returns the terminal event type for a modality and outcome.
func VerificationEvent(m Method, success bool) EventType {
	switch {
	case m == MethodVoice && success:
		return EventVoiceVerificationSuccess
	case m == MethodVoice:
		return EventVoiceVerificationFailure
	case success:
		return EventVerificationSuccess
	default:
		return EventVerificationFailure
	}
}
