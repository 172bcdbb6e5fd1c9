// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Vorbis with jfreymuth/oggvorbis and converts floats to int16
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// VorbisDecoder decodes Ogg Vorbis audio
type VorbisDecoder struct {
	reader *oggvorbis.Reader
	buf    []float32
}

// NewVorbis creates a new Vorbis decoder. It reads the Vorbis headers from r before returning.
func NewVorbis(format audio.Format, r io.Reader) (Decoder, error) {
	if format.Codec != audio.CodecVorbis {
		return nil, fmt.Errorf("invalid codec for Vorbis decoder: %s", format.Codec)
	}

	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create vorbis decoder: %w", err)
	}

	return &VorbisDecoder{reader: reader}, nil
}

// Read decodes Vorbis packets into int16 samples
func (d *VorbisDecoder) Read(pcm []int16) (int, error) {
	if cap(d.buf) < len(pcm) {
		d.buf = make([]float32, len(pcm))
	}
	buf := d.buf[:len(pcm)]

	n, err := d.reader.Read(buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("vorbis decode error: %w", err)
	}

	for i := 0; i < n; i++ {
		pcm[i] = audio.Float32ToInt16(buf[i])
	}
	return n, err
}

// Format returns the output format
func (d *VorbisDecoder) Format() audio.Format {
	return audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: d.reader.SampleRate(),
		Channels:   d.reader.Channels(),
		BitDepth:   16,
	}
}

// Close releases decoder resources
func (d *VorbisDecoder) Close() error {
	return nil
}
