// ABOUTME: Sentinel errors for the audio pipeline
// ABOUTME: Callers match these with errors.Is
package audio

import "errors"

var (
	// ErrNoAudioTrack is returned when a source has no track whose codec starts with audio/
	ErrNoAudioTrack = errors.New("no audio track found")

	// ErrUnsupportedFormat is returned when the selected track declares no codec
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDecodeFailed wraps any failure while extracting or decoding
	ErrDecodeFailed = errors.New("decode failed")

	// ErrTruncatedHeader is returned when a WAV file is shorter than its 44-byte header
	ErrTruncatedHeader = errors.New("wav header truncated")

	// ErrCorruptContainer is returned when a file cannot be recognized as any container
	ErrCorruptContainer = errors.New("unrecognized or corrupt container")

	// ErrDegenerateResample is logged when resampling would produce no samples
	ErrDegenerateResample = errors.New("resample target length is zero")
)
