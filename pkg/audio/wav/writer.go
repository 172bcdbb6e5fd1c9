// ABOUTME: WAV muxer for mono 16-bit PCM
// ABOUTME: Removes the output file when the write fails or produces a short file
package wav

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// HeaderSize is the size of a canonical PCM WAV header
const HeaderSize = 44

const pcmAudioFormat = 1

type outputFile interface {
	io.WriteSeeker
	io.Closer
}

var createOutput = func(path string) (outputFile, error) {
	return os.Create(path)
}

// WriteFile writes mono int16 samples at sampleRate to path as a 16-bit PCM WAV file.
//
// The file is deleted if any step fails or if it ends up missing, empty or
// shorter than the header.
func WriteFile(path string, samples []int16, sampleRate int) (err error) {
	f, err := createOutput(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}

	defer func() {
		if err != nil {
			removeOutput(path)
		}
	}()

	if err = encode(f, samples, sampleRate); err != nil {
		if cerr := f.Close(); cerr != nil {
			log.Printf("wav: close after failed write: %v", cerr)
		}
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close wav file: %w", err)
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return fmt.Errorf("wav file missing after write: %w", statErr)
	}
	if info.Size() < HeaderSize {
		return fmt.Errorf("wav file too small: %d bytes", info.Size())
	}

	return nil
}

func encode(w io.WriteSeeker, samples []int16, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, pcmAudioFormat)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	buf := &audio.IntBuffer{
		Data: data,
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: 16,
	}

	// Write runs even with no samples so the header and data chunk exist
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write pcm data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav header: %w", err)
	}
	return nil
}

func removeOutput(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("wav: failed to remove %s: %v", path, err)
	}
}
