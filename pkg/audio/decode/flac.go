// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames with mewkiz/flac and scales them to 16-bit
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct {
	stream   *flac.Stream
	channels int
	bitDepth int
	pending  []int16
}

// NewFLAC creates a new FLAC decoder. It parses the stream info block from r before returning.
func NewFLAC(format audio.Format, r io.Reader) (Decoder, error) {
	if format.Codec != audio.CodecFLAC {
		return nil, fmt.Errorf("invalid codec for FLAC decoder: %s", format.Codec)
	}

	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	return &FLACDecoder{
		stream:   stream,
		channels: int(stream.Info.NChannels),
		bitDepth: int(stream.Info.BitsPerSample),
	}, nil
}

// Read decodes FLAC frames into interleaved int16 samples
func (d *FLACDecoder) Read(pcm []int16) (int, error) {
	for len(d.pending) == 0 {
		frame, err := d.stream.ParseNext()
		if err == io.EOF {
			return 0, io.EOF
		}
		if err != nil {
			return 0, fmt.Errorf("flac decode error: %w", err)
		}

		blockSize := int(frame.BlockSize)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < d.channels; ch++ {
				d.pending = append(d.pending, scaleTo16(frame.Subframes[ch].Samples[i], d.bitDepth))
			}
		}
	}

	n := copy(pcm, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// scaleTo16 shifts a sample of the given bit depth into the 16-bit range
func scaleTo16(sample int32, bitDepth int) int16 {
	shift := bitDepth - 16
	if shift > 0 {
		return int16(sample >> shift)
	}
	return int16(sample << -shift)
}

// Format returns the output format
func (d *FLACDecoder) Format() audio.Format {
	return audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: int(d.stream.Info.SampleRate),
		Channels:   d.channels,
		BitDepth:   16,
	}
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
