package ws

import (
	"time"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

// EventType names a server-to-client message
type EventType string

const (
	EventPermissionRequest    EventType = "permission.request"
	EventEnrollmentFeedback   EventType = "enrollment.feedback"
	EventVerificationFeedback EventType = "verification.feedback"
	EventOutcome              EventType = "session.outcome"
	EventError                EventType = "session.error"
	EventSecurity             EventType = "security.event"
)

// Event is every server-to-client message
type Event struct {
	UserID    string      `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func newEvent(userID string, t EventType, data interface{}) Event {
	return Event{UserID: userID, Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// MediaKind names the device a permission request is for
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

type PermissionRequest struct {
	Kind MediaKind `json:"kind"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Inbound message types sent by the client as text frames. Binary frames
// carry little-endian float32 PCM audio.
const (
	MessagePermission = "permission"
	MessageFrame      = "frame"
	MessageAudio      = "audio"
	MessageCancel     = "cancel"
)

// Inbound is a client-to-server text message
type Inbound struct {
	Type    string          `json:"type"`
	Granted bool            `json:"granted,omitempty"`
	Frame   *provider.Frame `json:"frame,omitempty"`
	Samples []float64       `json:"samples,omitempty"`
}

// kind resolves messages that omit the type field
func (m Inbound) kind() string {
	switch {
	case m.Type != "":
		return m.Type
	case m.Frame != nil:
		return MessageFrame
	case len(m.Samples) > 0:
		return MessageAudio
	}
	return ""
}
