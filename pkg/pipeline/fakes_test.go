// ABOUTME: In-memory media source and codec for pipeline tests
// ABOUTME: Records lifecycle calls so tests can check every release path
package pipeline

import (
	"errors"
	"io"
	"time"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/media"
)

type fakeSource struct {
	tracks   []media.Track
	frames   [][]byte
	next     int
	selected int
	closed   bool
	readErr  error
}

func newFakeSource(frames [][]byte, tracks ...media.Track) *fakeSource {
	for i := range tracks {
		tracks[i].Index = i
	}
	return &fakeSource{tracks: tracks, frames: frames, selected: -1}
}

func (s *fakeSource) Tracks() []media.Track { return s.tracks }

func (s *fakeSource) SelectTrack(index int) error {
	s.selected = index
	return nil
}

func (s *fakeSource) ReadFrame(buf []byte) (int, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.next >= len(s.frames) {
		return 0, io.EOF
	}
	return copy(buf, s.frames[s.next]), nil
}

func (s *fakeSource) Advance() error {
	s.next++
	return nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// fakeCodec passes input bytes through as PCM once input reaches end of stream
type fakeCodec struct {
	format    audio.Format
	outFormat audio.Format
	announce  *audio.Format
	announced bool

	input    []byte
	inputEOS bool
	sentEOS  bool
	slot     media.InputSlot

	outputErr error
	startErr  error

	configured, started, stopped, released bool
}

func (c *fakeCodec) Configure(format audio.Format) error {
	c.format = format
	c.outFormat = format
	c.configured = true
	return nil
}

func (c *fakeCodec) Start() error {
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	c.slot = media.InputSlot{Data: make([]byte, 16)}
	return nil
}

func (c *fakeCodec) DequeueInput(timeout time.Duration) (*media.InputSlot, error) {
	if c.inputEOS {
		return nil, media.ErrTryAgain
	}
	return &c.slot, nil
}

func (c *fakeCodec) QueueInput(slot *media.InputSlot, size int, eos bool) error {
	if c.inputEOS {
		return errors.New("input after eos")
	}
	c.input = append(c.input, slot.Data[:size]...)
	c.inputEOS = eos
	return nil
}

func (c *fakeCodec) DequeueOutput(timeout time.Duration) (*media.OutputSlot, error) {
	if c.outputErr != nil {
		return nil, c.outputErr
	}
	if c.announce != nil && !c.announced {
		c.announced = true
		c.outFormat = *c.announce
		return nil, media.ErrFormatChanged
	}
	if !c.inputEOS || c.sentEOS {
		return nil, media.ErrTryAgain
	}
	c.sentEOS = true
	return &media.OutputSlot{Data: c.input, EOS: true}, nil
}

func (c *fakeCodec) ReleaseOutput(slot *media.OutputSlot) error { return nil }

func (c *fakeCodec) OutputFormat() audio.Format { return c.outFormat }

func (c *fakeCodec) Stop() error {
	c.stopped = true
	return nil
}

func (c *fakeCodec) Release() error {
	c.released = true
	return nil
}

func fakeProcessor(src *fakeSource, codec *fakeCodec) *Processor {
	return New(Config{
		OpenSource: func(string) (media.Source, error) { return src, nil },
		NewCodec: func(media.Track) (media.Codec, error) {
			if codec == nil {
				return nil, errors.New("no codec")
			}
			return codec, nil
		},
	})
}

type recordingObserver struct {
	decodes     []error
	conversions []error
	samples     int
	codec       string
}

func (o *recordingObserver) ObserveDecode(codec string, elapsed time.Duration, err error) {
	o.codec = codec
	o.decodes = append(o.decodes, err)
}

func (o *recordingObserver) ObserveConversion(elapsed time.Duration, samples int, err error) {
	o.samples = samples
	o.conversions = append(o.conversions, err)
}
