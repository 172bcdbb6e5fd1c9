// ABOUTME: Conversion pipeline from compressed audio to speech-ready samples
// ABOUTME: Drives the media codec drain loop, normalizes, writes and reads WAV
// Package pipeline turns arbitrary compressed audio into the 16 kHz mono
// 16-bit WAV a speech recognizer consumes, and reads that WAV back as floats.
//
// The flow is:
//   - DecodeFile: select the first audio track and drain the codec to PCM
//   - ProcessToWAV: downmix, resample to 16 kHz and write a canonical WAV
//   - LoadSamples: read the WAV back as float32 samples in [-1, 1]
//
// Example:
//
//	p := pipeline.New(pipeline.Config{})
//	if _, err := p.ProcessToWAV(ctx, "memo.m4a", "memo.wav"); err != nil {
//	    return err
//	}
//	samples, err := pipeline.LoadSamples("memo.wav")
package pipeline
