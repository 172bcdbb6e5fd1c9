// ABOUTME: Audio output interface and playback helper
// ABOUTME: Streams PCM to any Output in fixed-size chunks
package output

import (
	"context"
	"fmt"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs interleaved samples (blocks until written)
	Write(samples []int16) error

	// Drain blocks until everything written has been played
	Drain(ctx context.Context) error

	// Close releases output resources
	Close() error
}

// chunkFrames is how many frames Play hands to the device per Write
const chunkFrames = 1024

// Play opens out and writes samples to it, stopping early when ctx is done
func Play(ctx context.Context, out Output, samples []int16, sampleRate, channels int) error {
	if channels < 1 {
		return fmt.Errorf("invalid channel count: %d", channels)
	}
	if err := out.Open(sampleRate, channels); err != nil {
		return err
	}

	step := chunkFrames * channels
	for start := 0; start < len(samples); start += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+step, len(samples))
		if err := out.Write(samples[start:end]); err != nil {
			return err
		}
	}

	return out.Drain(ctx)
}
