// ABOUTME: End-to-end conversion to canonical WAV and sample loading
// ABOUTME: Chains decode, downmix, resample and the WAV codec
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/resample"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/wav"
)

// Result summarizes a conversion
type Result struct {
	Input          string        `json:"input"`
	Output         string        `json:"output"`
	Codec          string        `json:"codec"`
	SourceRate     int           `json:"source_rate"`
	SourceChannels int           `json:"source_channels"`
	Samples        int           `json:"samples"`
	Duration       time.Duration `json:"duration"`
}

// ProcessToWAV decodes input and writes it to output as 16 kHz mono 16-bit WAV
func (p *Processor) ProcessToWAV(ctx context.Context, input, output string) (result *Result, err error) {
	start := time.Now()
	defer func() {
		if p.config.Observer != nil {
			samples := 0
			if result != nil {
				samples = result.Samples
			}
			p.config.Observer.ObserveConversion(time.Since(start), samples, err)
		}
	}()

	decoded, err := p.DecodeFile(ctx, input)
	if err != nil {
		return nil, err
	}

	mono := resample.Normalize(decoded.PCM, decoded.SampleRate, decoded.Channels)

	if err := wav.WriteFile(output, mono, audio.TargetSampleRate); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", output, err)
	}

	result = &Result{
		Input:          input,
		Output:         output,
		Codec:          decoded.Codec,
		SourceRate:     decoded.SampleRate,
		SourceChannels: decoded.Channels,
		Samples:        len(mono),
		Duration:       time.Duration(len(mono)) * time.Second / audio.TargetSampleRate,
	}

	log.Printf("Converted %s -> %s (%s, %d Hz x%d -> %d samples, %v)",
		input, output, result.Codec, result.SourceRate, result.SourceChannels, result.Samples, result.Duration)
	return result, nil
}

// LoadSamples reads a WAV written by ProcessToWAV as float32 samples in [-1, 1]
func LoadSamples(path string) ([]float32, error) {
	return wav.ReadFile(path)
}
