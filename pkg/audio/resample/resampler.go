// ABOUTME: Anchor-preserving linear resampler for mono int16 PCM
// ABOUTME: Maps a whole buffer onto the length implied by the rate ratio
package resample

import (
	"log"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
	}
}

// OutputLength returns floor(n * outputRate / inputRate), or 0 for a non-positive input rate
func (r *Resampler) OutputLength(n int) int {
	if r.inputRate <= 0 {
		return 0
	}
	return int(int64(n) * int64(r.outputRate) / int64(r.inputRate))
}

// Resample converts a mono buffer to the output rate.
//
// Output sample i samples the input at position i*(n-1)/(target-1), so the
// first and last input samples appear unchanged at both ends of the output.
// Interpolated values are truncated toward zero.
func (r *Resampler) Resample(input []int16) []int16 {
	if r.inputRate == r.outputRate {
		return input
	}
	if r.inputRate <= 0 {
		log.Printf("resample: invalid input rate %d, returning audio unresampled", r.inputRate)
		return input
	}

	n := len(input)
	target := r.OutputLength(n)

	if target == 0 && n > 0 {
		log.Printf("resample: %v (%d samples at %d Hz), returning audio unresampled",
			audio.ErrDegenerateResample, n, r.inputRate)
		return input
	}
	if n == 0 {
		return []int16{}
	}

	output := make([]int16, target)

	if n == 1 {
		for i := range output {
			output[i] = input[0]
		}
		return output
	}
	if target == 1 {
		output[0] = input[0]
		return output
	}

	last := n - 1
	for i := 0; i < target; i++ {
		// Integer product first so the final position lands exactly on the last sample
		pos := float64(int64(i)*int64(last)) / float64(target-1)

		lo := int(pos)
		if lo < 0 {
			lo = 0
		}
		if lo > last {
			lo = last
		}
		hi := lo + 1
		if hi > last {
			hi = last
		}

		frac := pos - float64(lo)
		sample1 := input[lo]
		sample2 := input[hi]

		interpolated := float64(sample1) + float64(int32(sample2)-int32(sample1))*frac
		output[i] = int16(interpolated)
	}

	return output
}

// Normalize downmixes interleaved PCM to mono and resamples it to 16 kHz
func Normalize(pcm []int16, sampleRate, channels int) []int16 {
	mono := Downmix(pcm, channels)
	return New(sampleRate, audio.TargetSampleRate).Resample(mono)
}
