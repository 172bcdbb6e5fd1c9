// ABOUTME: Channel downmixing for interleaved int16 PCM
// ABOUTME: Stereo is averaged, wider layouts keep their first channel
package resample

// Downmix converts interleaved PCM to mono.
//
// One channel (or fewer) passes through unchanged. Stereo frames become the
// truncated average of left and right. Layouts with more than two channels keep
// only the first channel of each frame. A trailing partial frame is dropped.
func Downmix(pcm []int16, channels int) []int16 {
	if channels <= 1 {
		return pcm
	}

	frames := len(pcm) / channels
	mono := make([]int16, frames)

	if channels == 2 {
		for i := 0; i < frames; i++ {
			left := int32(pcm[i*2])
			right := int32(pcm[i*2+1])
			mono[i] = int16((left + right) / 2)
		}
		return mono
	}

	for i := 0; i < frames; i++ {
		mono[i] = pcm[i*channels]
	}
	return mono
}
