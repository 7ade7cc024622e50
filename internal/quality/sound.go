package quality

import (
	"math"
)

// SoundLevel grades microphone input during voice capture
type SoundLevel string

const (
	SoundTooQuiet SoundLevel = "too quiet"
	SoundTooLoud  SoundLevel = "too loud"
	SoundGood     SoundLevel = "good"
)

// Message returns the user-facing hint for the level
func (s SoundLevel) Message() string {
	switch s {
	case SoundTooQuiet:
		return "Speak a bit louder."
	case SoundTooLoud:
		return "A bit too loud, move back slightly."
	default:
		return "Sound level is good, keep going."
	}
}

const (
	// soundWindow matches a 256-bin byte time-domain analyser buffer
	soundWindow = 256
	quietBelow  = 1.5
	loudAbove   = 25
)

// LevelFromBytes averages |v-128| over unsigned 8-bit time-domain samples
func LevelFromBytes(window []byte) (SoundLevel, float64) {
	if len(window) == 0 {
		return SoundTooQuiet, 0
	}

	var sum float64
	for _, v := range window {
		sum += math.Abs(float64(v) - 128)
	}
	avg := sum / float64(len(window))

	return classify(avg), avg
}

// Level maps the last 256 float samples in [-1, 1] onto the byte scale first
func Level(samples []float64) (SoundLevel, float64) {
	if len(samples) > soundWindow {
		samples = samples[len(samples)-soundWindow:]
	}

	window := make([]byte, len(samples))
	for i, s := range samples {
		v := 128 + s*128
		window[i] = byte(math.Max(0, math.Min(255, math.Round(v))))
	}

	return LevelFromBytes(window)
}

func classify(avg float64) SoundLevel {
	switch {
	case avg < quietBelow:
		return SoundTooQuiet
	case avg > loudAbove:
		return SoundTooLoud
	default:
		return SoundGood
	}
}
