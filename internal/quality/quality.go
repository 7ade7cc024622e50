// Package quality implements the per-frame liveness gate and the voice sound-level heuristic.
package quality

import (
	"math"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

// Status is the gate verdict for one frame
type Status string

const (
	StatusNoFace      Status = "no face detected"
	StatusPoorQuality Status = "poor quality"
	StatusMoveCloser  Status = "move closer"
	StatusMoveFurther Status = "move further"
	StatusCenterFace  Status = "center your face"
	StatusGood        Status = "good, hold still"
)

var messages = map[Status]string{
	StatusNoFace:      "No face detected. Please position your face in the frame.",
	StatusPoorQuality: "Poor quality. Check lighting.",
	StatusMoveCloser:  "Move slightly closer.",
	StatusMoveFurther: "Move slightly further away.",
	StatusCenterFace:  "Please center your face.",
	StatusGood:        "Good! Hold still.",
}

// Message returns the user-facing feedback text for a status
func (s Status) Message() string {
	if m, ok := messages[s]; ok {
		return m
	}
	return string(s)
}

// Thresholds bound the detection box a frame must satisfy
type Thresholds struct {
	MinConfidence   float64
	MinBoxRatio     float64
	MaxBoxRatio     float64
	CenterTolerance float64
}

// DefaultThresholds are the gate bounds used by every session
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence:   0.8,
		MinBoxRatio:     0.25,
		MaxBoxRatio:     0.6,
		CenterTolerance: 0.2,
	}
}

// Assessment is recomputed every tick and never persisted
type Assessment struct {
	ConfidenceScore   float64 `json:"confidence_score"`
	BoxWidthRatio     float64 `json:"box_width_ratio"`
	CenterOffsetRatio float64 `json:"center_offset_ratio"`
	Status            Status  `json:"status"`
	Ready             bool    `json:"ready"`
}

// Gate grades frames before they are embedded
type Gate struct {
	t Thresholds
}

// NewGate creates a gate with the given thresholds
func NewGate(t Thresholds) *Gate {
	return &Gate{t: t}
}

// Assess walks the ladder in order and stops at the first failing check.
// A nil detection is "no face detected".
func (g *Gate) Assess(det *provider.Detection) Assessment {
	if det == nil {
		return Assessment{Status: StatusNoFace}
	}

	a := Assessment{ConfidenceScore: det.Confidence}
	if det.FrameWidth <= 0 {
		a.Status = StatusPoorQuality
		return a
	}

	frameWidth := float64(det.FrameWidth)
	a.BoxWidthRatio = det.Box.Width / frameWidth
	a.CenterOffsetRatio = math.Abs(det.Box.CenterX()-frameWidth/2) / frameWidth

	switch {
	case a.ConfidenceScore < g.t.MinConfidence:
		a.Status = StatusPoorQuality
	case a.BoxWidthRatio < g.t.MinBoxRatio:
		a.Status = StatusMoveCloser
	case a.BoxWidthRatio > g.t.MaxBoxRatio:
		a.Status = StatusMoveFurther
	case a.CenterOffsetRatio > g.t.CenterTolerance:
		a.Status = StatusCenterFace
	default:
		a.Status = StatusGood
		a.Ready = true
	}

	return a
}

// Assess runs the default ladder
func Assess(det *provider.Detection) Assessment {
	return NewGate(DefaultThresholds()).Assess(det)
}
