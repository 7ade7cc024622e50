package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("face")
	assert.NoError(t, err)
	assert.Equal(t, MethodFace, m)

	_, err = ParseMethod("iris")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestSettings_EffectiveFaceThreshold(t *testing.T) {
	explicit := 0.33
	tests := []struct {
		name     string
		settings Settings
		want     float64
	}{
		{"defaults use medium strictness", DefaultSettings(), 0.45},
		{"low strictness", Settings{Strictness: StrictnessLow}, 0.5},
		{"high strictness", Settings{Strictness: StrictnessHigh}, 0.4},
		{"explicit threshold wins", Settings{Strictness: StrictnessHigh, FaceThreshold: &explicit}, 0.33},
		{"unknown strictness falls back", Settings{Strictness: "extreme"}, DefaultFaceThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.settings.EffectiveFaceThreshold(), 1e-9)
		})
	}
}

func TestValidateFaceThreshold(t *testing.T) {
	assert.NoError(t, ValidateFaceThreshold(0.30))
	assert.NoError(t, ValidateFaceThreshold(0.45))
	assert.NoError(t, ValidateFaceThreshold(0.60))
	assert.ErrorIs(t, ValidateFaceThreshold(0.29), ErrInvalidThreshold)
	assert.ErrorIs(t, ValidateFaceThreshold(0.61), ErrInvalidThreshold)
}

func TestTemplates_Preferred(t *testing.T) {
	_, ok := Templates{}.Preferred()
	assert.False(t, ok)

	voiceOnly := Templates{Voice: &BiometricTemplate{Method: MethodVoice}}
	m, ok := voiceOnly.Preferred()
	assert.True(t, ok)
	assert.Equal(t, MethodVoice, m)

	both := Templates{Face: &BiometricTemplate{}, Voice: &BiometricTemplate{}}
	m, _ = both.Preferred()
	assert.Equal(t, MethodFace, m)
}

func TestVerificationEvent(t *testing.T) {
	assert.Equal(t, EventVerificationSuccess, VerificationEvent(MethodFace, true))
	assert.Equal(t, EventVerificationFailure, VerificationEvent(MethodFace, false))
	assert.Equal(t, EventVoiceVerificationSuccess, VerificationEvent(MethodVoice, true))
	assert.Equal(t, EventVoiceVerificationFailure, VerificationEvent(MethodVoice, false))
	assert.Equal(t, EventVoiceEnrollmentSuccess, EnrollmentEvent(MethodVoice))
	assert.Equal(t, EventEnrollmentSuccess, EnrollmentEvent(MethodFace))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "3500", FormatAmount(3500))
	assert.Equal(t, "150230.75", FormatAmount(150230.75))
	assert.Equal(t, "17500", FormatAmount(17500.0))
}
