// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides the streaming Decoder interface and codec implementations
// Package decode provides streaming audio decoders for various codecs.
//
// Supports: MP3, FLAC, Ogg Vorbis, Ogg Opus, raw PCM (8/16/24/32-bit) and,
// through an external ffmpeg process, anything else ffmpeg can read.
//
// All decoders read compressed bytes from an io.Reader and produce
// interleaved 16-bit samples. Format reports the rate and channel count the
// decoder actually produces, which can differ from what the container declared.
//
// Example:
//
//	dec, err := decode.New(format, r)
//	n, err := dec.Read(pcm)
package decode
