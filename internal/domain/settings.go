package domain

// Face threshold bounds for the adjustable flow.
const (
	DefaultFaceThreshold = 0.45
	MinFaceThreshold     = 0.30
	MaxFaceThreshold     = 0.60
	// VoiceThreshold is fixed; voice has no quality ladder filtering noisy samples.
	VoiceThreshold = 0.2
)

// Strictness selects a preset face match threshold
type Strictness string

const (
	StrictnessLow    Strictness = "low"
	StrictnessMedium Strictness = "medium"
	StrictnessHigh   Strictness = "high"
)

// Threshold maps a strictness level to a face distance threshold.
func (s Strictness) Threshold() (float64, bool) {
	switch s {
	case StrictnessLow:
		return 0.5, true
	case StrictnessMedium:
		return 0.45, true
	case StrictnessHigh:
		return 0.4, true
	}
	return 0, false
}

// Settings are read once when a verification session begins.
type Settings struct {
	FaceThreshold *float64   `json:"face_threshold,omitempty"`
	Strictness    Strictness `json:"liveness_strictness,omitempty"`
	// BiometricsConsent is nil until the user has been asked.
	BiometricsConsent *bool `json:"biometrics_consent,omitempty"`
}

// DefaultSettings returns medium strictness with no explicit threshold
func DefaultSettings() Settings {
	return Settings{Strictness: StrictnessMedium}
}

// EffectiveFaceThreshold prefers an explicit threshold, then strictness, then the default.
func (s Settings) EffectiveFaceThreshold() float64 {
	if s.FaceThreshold != nil {
		return *s.FaceThreshold
	}
	if t, ok := s.Strictness.Threshold(); ok {
		return t
	}
	return DefaultFaceThreshold
}

func (s Settings) Consented() bool {
	return s.BiometricsConsent != nil && *s.BiometricsConsent
}

// ValidateFaceThreshold rejects thresholds outside the allowed range
func ValidateFaceThreshold(t float64) error {
	// small epsilon so 0.30 and 0.60 from float parsing are accepted
	const eps = 1e-9
	if t < MinFaceThreshold-eps || t > MaxFaceThreshold+eps {
		return ErrInvalidThreshold
	}
	return nil
}
