// ABOUTME: Audio type definitions
// ABOUTME: Defines track formats, codec identifiers and sample conversions
package audio

import (
	"encoding/binary"
	"strings"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Canonical output format for speech recognition
const (
	TargetSampleRate = 16000
	TargetChannels   = 1
	TargetBitDepth   = 16
)

// Codec identifiers, MIME style
const (
	CodecMP3    = "audio/mpeg"
	CodecFLAC   = "audio/flac"
	CodecOpus   = "audio/opus"
	CodecVorbis = "audio/vorbis"
	CodecAAC    = "audio/mp4a-latm"
	CodecPCM    = "audio/raw"
)

// Format describes an audio track
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int // raw PCM only
}

// IsAudio reports whether a codec identifier names an audio codec.
func IsAudio(codec string) bool {
	return strings.HasPrefix(codec, "audio/")
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Int16FromBytes interprets b as little-endian int16 samples.
// A trailing odd byte is ignored.
func Int16FromBytes(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

// Int16ToBytes packs samples as little-endian bytes
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// ToFloat32 normalizes int16 samples to [-1, 1] by dividing by 32768.
func ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32ToInt16 converts a float sample in [-1, 1] to int16, clamping out of range values
func Float32ToInt16(f float32) int16 {
	v := f * 32768.0
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
