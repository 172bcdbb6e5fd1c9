// ABOUTME: Channel and sample rate normalization for speech input
// ABOUTME: Downmixes to mono and linearly resamples to the 16 kHz target
// Package resample converts decoded PCM into mono 16 kHz audio.
//
// Downmix collapses interleaved channels into one. Resampler maps a mono
// sequence onto a new length with linear interpolation, keeping the first and
// last samples exact. Normalize chains both steps.
//
// Example:
//
//	mono := resample.Normalize(pcm, 44100, 2)
package resample
