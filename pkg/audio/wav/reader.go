// ABOUTME: WAV demuxer that skips the canonical header
// ABOUTME: Returns PCM payload as int16 or normalized float32 samples
package wav

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// ReadPCM skips exactly HeaderSize bytes of r and returns the rest as
// little-endian int16 samples. A trailing odd byte is dropped.
func ReadPCM(r io.Reader) ([]int16, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, audio.ErrTruncatedHeader
		}
		return nil, fmt.Errorf("failed to read wav header: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm data: %w", err)
	}

	if len(data)%2 != 0 {
		log.Printf("wav: dropping odd trailing byte (%d pcm bytes)", len(data))
		data = data[:len(data)-1]
	}

	return audio.Int16FromBytes(data), nil
}

// Read returns the PCM payload of r as float samples in [-1, 1]
func Read(r io.Reader) ([]float32, error) {
	pcm, err := ReadPCM(r)
	if err != nil {
		return nil, err
	}
	return audio.ToFloat32(pcm), nil
}

// ReadFile opens path and returns its samples as floats
func ReadFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// ReadPCMFile opens path and returns its raw int16 samples
func ReadPCMFile(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	return ReadPCM(f)
}
