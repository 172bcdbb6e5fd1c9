// ABOUTME: Audio output package for previewing converted audio
// ABOUTME: Provides the Output interface and an oto implementation
// Package output plays 16-bit PCM through the system audio device.
//
// Example:
//
//	samples, _ := wav.ReadPCMFile("speech.wav")
//	out := output.NewOto()
//	defer out.Close()
//	err := output.Play(ctx, out, samples, 16000, 1)
package output
