// ABOUTME: Ogg container probe for Opus and Vorbis streams
// ABOUTME: Reads OpusHead with pion's oggreader and Vorbis headers with oggvorbis
package media

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/decode"
)

func probeOgg(src *fileSource, size int64) error {
	if _, header, err := oggreader.NewWith(io.NewSectionReader(src.file, 0, size)); err == nil {
		src.addTrack(Track{
			Format: audio.Format{
				Codec:      audio.CodecOpus,
				SampleRate: decode.OpusSampleRate,
				Channels:   int(header.Channels),
			},
			StreamIndex: -1,
		}, 0, size)
		return nil
	}

	reader, err := oggvorbis.NewReader(io.NewSectionReader(src.file, 0, size))
	if err != nil {
		return fmt.Errorf("ogg stream is neither opus nor vorbis: %w", err)
	}

	src.addTrack(Track{
		Format: audio.Format{
			Codec:      audio.CodecVorbis,
			SampleRate: reader.SampleRate(),
			Channels:   reader.Channels(),
		},
		StreamIndex: -1,
	}, 0, size)
	return nil
}
