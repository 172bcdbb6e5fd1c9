// ABOUTME: ffprobe-based container probe
// ABOUTME: Lists every stream of containers the native probes do not handle
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// DefaultFFprobePath is the executable looked up in PATH when no path is configured
const DefaultFFprobePath = "ffprobe"

const ffprobeTimeout = 30 * time.Second

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	Index         int    `json:"index"`
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
}

// ffprobe codec names with a MIME identifier of their own
var ffprobeCodecs = map[string]string{
	"mp3":       audio.CodecMP3,
	"flac":      audio.CodecFLAC,
	"opus":      audio.CodecOpus,
	"vorbis":    audio.CodecVorbis,
	"aac":       audio.CodecAAC,
	"pcm_s16le": audio.CodecPCM,
}

func probeFFprobe(src *fileSource, path string, size int64, ffprobePath string) error {
	if ffprobePath == "" {
		ffprobePath = DefaultFFprobePath
	}
	if _, err := exec.LookPath(ffprobePath); err != nil {
		return fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ffprobeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-show_streams",
		"-of", "json",
		path).Output()
	if err != nil {
		return fmt.Errorf("ffprobe failed: %w", err)
	}

	streams, err := parseFFprobe(out)
	if err != nil {
		return err
	}
	if len(streams) == 0 {
		return fmt.Errorf("ffprobe found no streams")
	}

	for _, t := range streams {
		src.addTrack(t, 0, size)
	}
	return nil
}

// parseFFprobe converts ffprobe JSON into tracks, all of them decoded through ffmpeg
func parseFFprobe(data []byte) ([]Track, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	tracks := make([]Track, 0, len(out.Streams))
	for _, s := range out.Streams {
		codec, ok := ffprobeCodecs[s.CodecName]
		if !ok || s.CodecType != "audio" {
			codec = s.CodecType + "/" + s.CodecName
		}

		rate, _ := strconv.Atoi(s.SampleRate)
		tracks = append(tracks, Track{
			Format: audio.Format{
				Codec:      codec,
				SampleRate: rate,
				Channels:   s.Channels,
				BitDepth:   s.BitsPerSample,
			},
			StreamIndex: s.Index,
		})
	}
	return tracks, nil
}
