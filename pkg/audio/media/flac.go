// ABOUTME: Native FLAC container probe
// ABOUTME: Reads STREAMINFO with mewkiz/flac
package media

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

func probeFLAC(src *fileSource, size int64) error {
	stream, err := flac.New(io.NewSectionReader(src.file, 0, size))
	if err != nil {
		return fmt.Errorf("invalid flac stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	src.addTrack(Track{
		Format: audio.Format{
			Codec:      audio.CodecFLAC,
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
		StreamIndex: -1,
	}, 0, size)
	return nil
}
