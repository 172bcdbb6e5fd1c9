// ABOUTME: PCM audio decoder
// ABOUTME: Converts 8, 16, 24 and 32-bit little-endian PCM to int16 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	format audio.Format
	reader *sampleReader
	buf    []byte
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format, r io.Reader) (Decoder, error) {
	if format.Codec != audio.CodecPCM {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	switch format.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", format.BitDepth)
	}

	return &PCMDecoder{
		format: format,
		reader: newSampleReader(r, format.BitDepth/8),
	}, nil
}

// Read converts PCM bytes to int16 samples
func (d *PCMDecoder) Read(pcm []int16) (int, error) {
	if len(pcm) == 0 {
		return 0, nil
	}

	width := d.format.BitDepth / 8
	need := len(pcm) * width
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := d.reader.Read(buf)
	numSamples := n / width

	for i := 0; i < numSamples; i++ {
		b := buf[i*width:]
		switch width {
		case 1:
			// 8-bit WAV is unsigned
			pcm[i] = int16(int(b[0])-128) << 8
		case 2:
			pcm[i] = int16(binary.LittleEndian.Uint16(b))
		case 3:
			pcm[i] = int16(audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]}) >> 8)
		case 4:
			pcm[i] = int16(int32(binary.LittleEndian.Uint32(b)) >> 16)
		}
	}

	return numSamples, err
}

// Format returns the output format
func (d *PCMDecoder) Format() audio.Format {
	return audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: d.format.SampleRate,
		Channels:   d.format.Channels,
		BitDepth:   16,
	}
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
