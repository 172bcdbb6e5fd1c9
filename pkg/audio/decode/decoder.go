// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders plus codec dispatch
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// Decoder decodes a compressed audio stream to interleaved int16 PCM
type Decoder interface {
	// Read decodes up to len(pcm) samples into pcm and returns io.EOF once the stream is exhausted
	Read(pcm []int16) (int, error)

	// Format describes the PCM the decoder produces
	Format() audio.Format

	// Close releases decoder resources
	Close() error
}

// New creates a decoder for format reading compressed data from r.
// Audio codecs without a native decoder are handed to ffmpeg.
func New(format audio.Format, r io.Reader) (Decoder, error) {
	switch format.Codec {
	case audio.CodecMP3:
		return NewMP3(format, r)
	case audio.CodecFLAC:
		return NewFLAC(format, r)
	case audio.CodecVorbis:
		return NewVorbis(format, r)
	case audio.CodecOpus:
		return NewOpus(format, r)
	case audio.CodecPCM:
		return NewPCM(format, r)
	}

	if !audio.IsAudio(format.Codec) {
		return nil, fmt.Errorf("%w: %q", audio.ErrUnsupportedFormat, format.Codec)
	}
	return NewFFmpeg(format, r, FFmpegOptions{StreamIndex: -1})
}
