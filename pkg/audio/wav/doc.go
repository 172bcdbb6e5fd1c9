// ABOUTME: Canonical WAV container support for the speech pipeline
// ABOUTME: Writes 44-byte-header mono PCM files and reads them back as samples
// Package wav writes and reads the 16-bit PCM WAV files exchanged with the
// transcription engine.
//
// WriteFile produces a canonical RIFF/WAVE file whose header is exactly 44
// bytes. ReadFile skips those 44 bytes and returns the remaining little-endian
// int16 samples normalized to [-1, 1]. Inspect reports what a file declares.
//
// Example:
//
//	if err := wav.WriteFile("out.wav", mono, 16000); err != nil {
//	    return err
//	}
//	samples, err := wav.ReadFile("out.wav")
package wav
