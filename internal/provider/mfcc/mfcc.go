// Package mfcc computes mel-frequency cepstral coefficients from raw PCM samples.
package mfcc

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/saturnino-fabrica-de-software/safishield/internal/provider"
)

// ErrInvalidParams is returned when the frame or filter settings are unusable
var ErrInvalidParams = errors.New("invalid mfcc parameters")

// floor avoids log(0) on silent frames
const floor = 1e-10

// Extractor implements provider.MFCCBackend
type Extractor struct{}

var _ provider.MFCCBackend = Extractor{}

// New returns the MFCC extractor
func New() Extractor {
	return Extractor{}
}

// ExtractMFCC frames samples with a Hamming window and returns one row of
// coefficients per frame. Input shorter than one frame yields an empty matrix.
func (Extractor) ExtractMFCC(samples []float64, p provider.MFCCParams) ([][]float64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if len(samples) < p.FrameSize {
		return [][]float64{}, nil
	}

	fft := fourier.NewFFT(p.FrameSize)
	window := hamming(p.FrameSize)
	bank := melFilterbank(p.Filters, p.FrameSize, p.SampleRate)

	frame := make([]float64, p.FrameSize)
	coeffs := make([]complex128, p.FrameSize/2+1)
	power := make([]float64, p.FrameSize/2+1)
	energies := make([]float64, p.Filters)

	rows := make([][]float64, 0, 1+(len(samples)-p.FrameSize)/p.StepSize)
	for start := 0; start+p.FrameSize <= len(samples); start += p.StepSize {
		for i := range frame {
			frame[i] = samples[start+i] * window[i]
		}

		fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			power[k] = a * a / float64(p.FrameSize)
		}

		for m, filter := range bank {
			var e float64
			for k, w := range filter {
				e += w * power[k]
			}
			energies[m] = math.Log(math.Max(e, floor))
		}

		rows = append(rows, dct(energies, p.Coefficients))
	}

	return rows, nil
}

func validate(p provider.MFCCParams) error {
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidParams, p.SampleRate)
	case p.FrameSize < 2:
		return fmt.Errorf("%w: frame size %d", ErrInvalidParams, p.FrameSize)
	case p.StepSize <= 0:
		return fmt.Errorf("%w: step size %d", ErrInvalidParams, p.StepSize)
	case p.Filters <= 0:
		return fmt.Errorf("%w: filters %d", ErrInvalidParams, p.Filters)
	case p.Coefficients <= 0 || p.Coefficients > p.Filters:
		return fmt.Errorf("%w: coefficients %d with %d filters", ErrInvalidParams, p.Coefficients, p.Filters)
	}
	return nil
}

func hamming(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds triangular filters spaced evenly on the mel scale
// between 0 Hz and Nyquist, one weight per power-spectrum bin.
func melFilterbank(filters, frameSize, sampleRate int) [][]float64 {
	bins := frameSize/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2)

	points := make([]int, filters+2)
	for i := range points {
		hz := melToHz(maxMel * float64(i) / float64(filters+1))
		points[i] = int(math.Floor(float64(frameSize+1) * hz / float64(sampleRate)))
		if points[i] >= bins {
			points[i] = bins - 1
		}
	}

	bank := make([][]float64, filters)
	for m := 1; m <= filters; m++ {
		filter := make([]float64, bins)
		left, center, right := points[m-1], points[m], points[m+1]
		for k := left; k < center; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k < right; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		bank[m-1] = filter
	}

	return bank
}

// dct returns the first n orthonormal DCT-II coefficients of x
func dct(x []float64, n int) []float64 {
	size := float64(len(x))
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/size)
		}
		scale := math.Sqrt(2 / size)
		if k == 0 {
			scale = math.Sqrt(1 / size)
		}
		out[k] = sum * scale
	}
	return out
}
