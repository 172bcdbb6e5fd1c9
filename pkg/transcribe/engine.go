// ABOUTME: Engine interface and transcription result types
// ABOUTME: Shared by every recognizer backend
package transcribe

import (
	"context"
	"time"
)

// Engine recognizes speech in 16 kHz mono samples normalized to [-1, 1]
type Engine interface {
	Transcribe(ctx context.Context, samples []float32) (*Result, error)
	Close() error
}

// Result is the recognizer output for one input
type Result struct {
	Text     string        `json:"text"`
	Language string        `json:"language,omitempty"`
	Segments []Segment     `json:"segments,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Segment is a timed span of recognized text
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}
