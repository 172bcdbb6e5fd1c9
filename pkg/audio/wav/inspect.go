// ABOUTME: WAV metadata inspection
// ABOUTME: Reports declared format and whether a file matches the canonical speech layout
package wav

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// Info describes a WAV file
type Info struct {
	SampleRate  int
	Channels    int
	BitDepth    int
	AudioFormat int
	PCMBytes    int64
	FileSize    int64
	Duration    time.Duration
}

// Canonical reports whether the file is 16 kHz mono 16-bit PCM with a 44-byte header
func (i Info) Canonical() bool {
	return i.AudioFormat == pcmAudioFormat &&
		i.SampleRate == audio.TargetSampleRate &&
		i.Channels == audio.TargetChannels &&
		i.BitDepth == audio.TargetBitDepth &&
		i.FileSize-i.PCMBytes == HeaderSize
}

// Inspect parses the header of the WAV file at path
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat wav file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", audio.ErrCorruptContainer)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate pcm data: %w", err)
	}

	info := &Info{
		SampleRate:  int(dec.SampleRate),
		Channels:    int(dec.NumChans),
		BitDepth:    int(dec.BitDepth),
		AudioFormat: int(dec.WavAudioFormat),
		PCMBytes:    dec.PCMLen(),
		FileSize:    stat.Size(),
	}

	if info.SampleRate > 0 && info.Channels > 0 && info.BitDepth > 0 {
		bytesPerSecond := int64(info.SampleRate * info.Channels * info.BitDepth / 8)
		info.Duration = time.Duration(info.PCMBytes * int64(time.Second) / bytesPerSecond)
	}

	return info, nil
}
