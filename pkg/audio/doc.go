// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, codec identifiers, sentinel errors and sample conversions
// Package audio provides the fundamental types shared by the whisperprep pipeline.
//
// This package defines:
//   - Format: Describes an audio track (codec identifier, sample rate, channels, bit depth)
//   - Codec identifiers: MIME-style names such as audio/mpeg and audio/flac
//   - Sentinel errors returned by decoding, resampling and WAV handling
//
// It also provides utilities for converting between sample representations:
//   - little-endian byte ↔ int16 conversions
//   - 24-bit packed byte → int32 conversion
//   - int16 → float32 normalization in [-1, 1]
//
// Example:
//
//	pcm := audio.Int16FromBytes(raw)
//	samples := audio.ToFloat32(pcm)
package audio
