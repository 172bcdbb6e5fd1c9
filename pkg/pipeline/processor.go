// ABOUTME: Processor configuration and the codec drain loop
// ABOUTME: Pumps compressed frames into a codec until input and output reach EOS
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/media"
)

// DefaultSlotTimeout is how long each input and output slot poll waits
const DefaultSlotTimeout = 10 * time.Millisecond

// Observer receives the outcome of pipeline stages
type Observer interface {
	ObserveDecode(codec string, elapsed time.Duration, err error)
	ObserveConversion(elapsed time.Duration, samples int, err error)
}

// Config holds processor configuration
type Config struct {
	// SlotTimeout bounds each codec slot poll (default: 10ms)
	SlotTimeout time.Duration

	// FFmpegPath and FFprobePath locate the external tools used for containers without a native decoder
	FFmpegPath  string
	FFprobePath string

	// Debug logs every slot exchanged with the codec
	Debug bool

	// Observer is notified after each decode and conversion
	Observer Observer

	// OpenSource and NewCodec replace the media framework, mostly for tests
	OpenSource func(path string) (media.Source, error)
	NewCodec   func(track media.Track) (media.Codec, error)
}

// Processor converts audio files. It is safe for concurrent use, each call owns its own source and codec.
type Processor struct {
	config Config
}

// Decoded holds the complete PCM of a track and the format decoding actually produced
type Decoded struct {
	PCM        []int16
	SampleRate int
	Channels   int
	Codec      string
}

// New creates a processor, applying defaults for unset fields
func New(config Config) *Processor {
	if config.SlotTimeout <= 0 {
		config.SlotTimeout = DefaultSlotTimeout
	}

	opts := media.Options{
		FFmpegPath:  config.FFmpegPath,
		FFprobePath: config.FFprobePath,
	}
	if config.OpenSource == nil {
		config.OpenSource = func(path string) (media.Source, error) {
			return media.Open(path, opts)
		}
	}
	if config.NewCodec == nil {
		config.NewCodec = func(track media.Track) (media.Codec, error) {
			return media.NewCodec(track, opts)
		}
	}

	return &Processor{config: config}
}

// DecodeFile decodes the first audio track of path into interleaved PCM.
//
// Every failure is reported as audio.ErrDecodeFailed wrapping the cause, so
// audio.ErrNoAudioTrack and audio.ErrUnsupportedFormat stay visible to errors.Is.
func (p *Processor) DecodeFile(ctx context.Context, path string) (decoded *Decoded, err error) {
	start := time.Now()
	codecName := ""
	defer func() {
		if p.config.Observer != nil {
			p.config.Observer.ObserveDecode(codecName, time.Since(start), err)
		}
	}()

	src, err := p.config.OpenSource(path)
	if err != nil {
		return nil, decodeError(err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Printf("pipeline: failed to release source: %v", cerr)
		}
	}()

	track, err := selectAudioTrack(src)
	if err != nil {
		return nil, decodeError(err)
	}
	codecName = track.Format.Codec

	// Tracks without an audio/ codec never get past selectAudioTrack, so this
	// only catches the bare "audio/" identifier
	if strings.TrimPrefix(track.Format.Codec, "audio/") == "" {
		return nil, decodeError(audio.ErrUnsupportedFormat)
	}

	codec, err := p.config.NewCodec(track)
	if err != nil {
		return nil, decodeError(fmt.Errorf("failed to create codec: %w", err))
	}
	defer func() {
		if rerr := codec.Release(); rerr != nil {
			log.Printf("pipeline: failed to release codec: %v", rerr)
		}
	}()

	if err := codec.Configure(track.Format); err != nil {
		return nil, decodeError(fmt.Errorf("failed to configure codec: %w", err))
	}
	if err := codec.Start(); err != nil {
		return nil, decodeError(fmt.Errorf("failed to start codec: %w", err))
	}
	defer func() {
		if serr := codec.Stop(); serr != nil {
			log.Printf("pipeline: failed to stop codec: %v", serr)
		}
	}()

	decoded = &Decoded{
		SampleRate: track.Format.SampleRate,
		Channels:   track.Format.Channels,
		Codec:      track.Format.Codec,
	}

	if err := p.drain(ctx, src, codec, decoded); err != nil {
		return nil, decodeError(err)
	}

	log.Printf("Decoded %s: %s, %d samples, %d Hz, %d channel(s)",
		path, decoded.Codec, len(decoded.PCM), decoded.SampleRate, decoded.Channels)
	return decoded, nil
}

// selectAudioTrack selects the first track whose codec starts with audio/
func selectAudioTrack(src media.Source) (media.Track, error) {
	for _, t := range src.Tracks() {
		if !audio.IsAudio(t.Format.Codec) {
			continue
		}
		if err := src.SelectTrack(t.Index); err != nil {
			return media.Track{}, fmt.Errorf("failed to select track %d: %w", t.Index, err)
		}
		return t, nil
	}
	return media.Track{}, audio.ErrNoAudioTrack
}

// drain pumps frames until both the input and output side have seen end of stream
func (p *Processor) drain(ctx context.Context, src media.Source, codec media.Codec, out *Decoded) error {
	var pcm []byte
	inputEOS := false
	outputEOS := false
	timeout := p.config.SlotTimeout

	for !outputEOS {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !inputEOS {
			slot, err := codec.DequeueInput(timeout)
			switch {
			case err == nil:
				n, rerr := src.ReadFrame(slot.Data)
				if rerr == io.EOF {
					if err := codec.QueueInput(slot, 0, true); err != nil {
						return fmt.Errorf("failed to queue end of stream: %w", err)
					}
					inputEOS = true
					p.debugf("input: end of stream")
					break
				}
				if rerr != nil {
					return fmt.Errorf("failed to read frame: %w", rerr)
				}
				if err := codec.QueueInput(slot, n, false); err != nil {
					return fmt.Errorf("failed to queue input: %w", err)
				}
				if err := src.Advance(); err != nil {
					return fmt.Errorf("failed to advance source: %w", err)
				}
				p.debugf("input: slot %d, %d bytes", slot.Index, n)
			case errors.Is(err, media.ErrTryAgain):
			default:
				return fmt.Errorf("failed to dequeue input: %w", err)
			}
		}

		slot, err := codec.DequeueOutput(timeout)
		switch {
		case err == nil:
			pcm = append(pcm, slot.Data...)
			eos := slot.EOS
			p.debugf("output: slot %d, %d bytes, eos=%v", slot.Index, len(slot.Data), eos)
			if err := codec.ReleaseOutput(slot); err != nil {
				return fmt.Errorf("failed to release output: %w", err)
			}
			if eos {
				outputEOS = true
			}
		case errors.Is(err, media.ErrFormatChanged):
			f := codec.OutputFormat()
			if f.SampleRate > 0 {
				out.SampleRate = f.SampleRate
			}
			if f.Channels > 0 {
				out.Channels = f.Channels
			}
			p.debugf("output: format changed to %d Hz, %d channel(s)", out.SampleRate, out.Channels)
		case errors.Is(err, media.ErrTryAgain):
		default:
			return fmt.Errorf("failed to dequeue output: %w", err)
		}
	}

	if len(pcm)%2 != 0 {
		log.Printf("pipeline: dropping odd trailing pcm byte")
	}
	out.PCM = audio.Int16FromBytes(pcm)
	return nil
}

func (p *Processor) debugf(format string, args ...any) {
	if p.config.Debug {
		log.Printf("pipeline: "+format, args...)
	}
}

func decodeError(err error) error {
	return fmt.Errorf("%w: %w", audio.ErrDecodeFailed, err)
}
