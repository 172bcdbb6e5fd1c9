// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MPEG layer III streams with go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct {
	decoder *mp3.Decoder
	reader  *sampleReader
	buf     []byte
}

// NewMP3 creates a new MP3 decoder. It reads the first frame from r before returning.
func NewMP3(format audio.Format, r io.Reader) (Decoder, error) {
	if format.Codec != audio.CodecMP3 {
		return nil, fmt.Errorf("invalid codec for MP3 decoder: %s", format.Codec)
	}

	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder: decoder,
		reader:  newSampleReader(decoder, 2),
	}, nil
}

// Read decodes MP3 frames into int16 samples
func (d *MP3Decoder) Read(pcm []int16) (int, error) {
	if len(pcm) == 0 {
		return 0, nil
	}

	need := len(pcm) * 2
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := d.reader.Read(buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}

	return numSamples, err
}

// Format returns the output format. go-mp3 always produces stereo.
func (d *MP3Decoder) Format() audio.Format {
	return audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: d.decoder.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	}
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
