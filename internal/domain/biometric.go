package domain

import (
	"time"
)

// Method identifies a biometric modality.
type Method string

const (
	MethodFace  Method = "face"
	MethodVoice Method = "voice"
)

func (m Method) Valid() bool {
	return m == MethodFace || m == MethodVoice
}

// ParseMethod converts a path or query value into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !m.Valid() {
		return "", ErrInvalidMethod
	}
	return m, nil
}

// Descriptor widths per modality. Enrolled and live vectors must agree before comparison.
const (
	FaceDescriptorSize  = 128
	VoiceDescriptorSize = 13
)

// BiometricTemplate is the persisted feature vector for one enrolled modality.
type BiometricTemplate struct {
	Method     Method    `json:"method"`
	Descriptor []float64 `json:"descriptor"`
	EnrolledOn time.Time `json:"enrolled_on"`
}

// Templates groups the optional face and voice templates of one user.
type Templates struct {
	Face  *BiometricTemplate `json:"face,omitempty"`
	Voice *BiometricTemplate `json:"voice,omitempty"`
}

// Get returns the template for m, or nil
func (t Templates) Get(m Method) *BiometricTemplate {
	switch m {
	case MethodFace:
		return t.Face
	case MethodVoice:
		return t.Voice
	}
	return nil
}

// Any reports whether at least one modality is enrolled.
func (t Templates) Any() bool {
	return t.Face != nil || t.Voice != nil
}

// Preferred returns the modality used for a biometric challenge, face first.
func (t Templates) Preferred() (Method, bool) {
	if t.Face != nil {
		return MethodFace, true
	}
	if t.Voice != nil {
		return MethodVoice, true
	}
	return "", false
}
