// ABOUTME: ffmpeg-backed decoder for codecs without a native Go decoder
// ABOUTME: Pipes compressed bytes through an ffmpeg process emitting s16le PCM
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// DefaultFFmpegPath is the executable looked up in PATH when no path is configured
const DefaultFFmpegPath = "ffmpeg"

// FFmpegOptions controls how the ffmpeg process reads its input
type FFmpegOptions struct {
	// Path to the ffmpeg executable, DefaultFFmpegPath when empty
	Path string
	// InputFormat is passed as -f before the input when set, e.g. "aac" for raw ADTS
	InputFormat string
	// StreamIndex selects a container stream with -map 0:N, or the first audio stream when negative
	StreamIndex int
}

// FFmpegDecoder decodes audio through an external ffmpeg process
type FFmpegDecoder struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	reader  *sampleReader
	stderr  *bytes.Buffer
	format  audio.Format
	buf     []byte
	waited  bool
	waitErr error
}

// NewFFmpeg starts ffmpeg reading compressed data from r on stdin.
//
// Output keeps format.SampleRate and format.Channels when they are known.
// Unknown values fall back to the canonical 16 kHz mono layout.
func NewFFmpeg(format audio.Format, r io.Reader, opts FFmpegOptions) (Decoder, error) {
	if !audio.IsAudio(format.Codec) {
		return nil, fmt.Errorf("invalid codec for ffmpeg decoder: %s", format.Codec)
	}

	path := opts.Path
	if path == "" {
		path = DefaultFFmpegPath
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w (install with: apt install ffmpeg)", err)
	}

	out := audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   16,
	}
	if out.SampleRate <= 0 {
		out.SampleRate = audio.TargetSampleRate
	}
	if out.Channels <= 0 {
		out.Channels = audio.TargetChannels
	}

	cmd := exec.Command(path, ffmpegArgs(out, opts)...)
	cmd.Stdin = r
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	// bounds Wait when stdin is a pipe nobody closes
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &FFmpegDecoder{
		cmd:    cmd,
		stdout: stdout,
		reader: newSampleReader(stdout, 2),
		stderr: stderr,
		format: out,
	}, nil
}

func ffmpegArgs(out audio.Format, opts FFmpegOptions) []string {
	args := []string{"-nostdin", "-loglevel", "error"}
	if opts.InputFormat != "" {
		args = append(args, "-f", opts.InputFormat)
	}
	args = append(args, "-i", "pipe:0")
	if opts.StreamIndex >= 0 {
		args = append(args, "-map", "0:"+strconv.Itoa(opts.StreamIndex))
	} else {
		args = append(args, "-map", "0:a:0")
	}
	return append(args,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(out.SampleRate),
		"-ac", strconv.Itoa(out.Channels),
		"pipe:1")
}

// Read returns decoded samples from ffmpeg stdout
func (d *FFmpegDecoder) Read(pcm []int16) (int, error) {
	if len(pcm) == 0 {
		return 0, nil
	}

	need := len(pcm) * 2
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := d.reader.Read(buf)
	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}

	if err == io.EOF {
		if werr := d.wait(); werr != nil {
			return numSamples, werr
		}
		return numSamples, io.EOF
	}
	if err != nil {
		return numSamples, fmt.Errorf("ffmpeg read error: %w", err)
	}
	return numSamples, nil
}

func (d *FFmpegDecoder) wait() error {
	if d.waited {
		return d.waitErr
	}
	d.waited = true

	if err := d.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(d.stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			d.waitErr = fmt.Errorf("ffmpeg exited with code %d: %s", exitErr.ExitCode(), msg)
		} else {
			d.waitErr = fmt.Errorf("ffmpeg failed: %w", err)
		}
	}
	return d.waitErr
}

// Format returns the output format
func (d *FFmpegDecoder) Format() audio.Format {
	return d.format
}

// Close stops the ffmpeg process if it is still running
func (d *FFmpegDecoder) Close() error {
	if d.waited {
		return nil
	}
	d.waited = true
	if d.stdout != nil {
		d.stdout.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
	}
	return nil
}
