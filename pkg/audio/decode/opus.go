// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Ogg Opus streams with libopusfile through hraban/opus
package decode

import (
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// OpusSampleRate is the only rate libopusfile decodes to
const OpusSampleRate = 48000

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct {
	stream   *opus.Stream
	channels int
}

// NewOpus creates a new Opus decoder. format.Channels comes from the OpusHead packet.
func NewOpus(format audio.Format, r io.Reader) (Decoder, error) {
	if format.Codec != audio.CodecOpus {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}
	if format.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count for Opus decoder: %d", format.Channels)
	}

	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		stream:   stream,
		channels: format.Channels,
	}, nil
}

// Read decodes Opus packets into interleaved int16 samples
func (d *OpusDecoder) Read(pcm []int16) (int, error) {
	// Stream.Read reports samples per channel
	n, err := d.stream.Read(pcm)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("opus decode failed: %w", err)
	}
	return n * d.channels, err
}

// Format returns the output format
func (d *OpusDecoder) Format() audio.Format {
	return audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: OpusSampleRate,
		Channels:   d.channels,
		BitDepth:   16,
	}
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return d.stream.Close()
}
