// ABOUTME: Slot-based codec interface and its goroutine-backed implementation
// ABOUTME: Feeds compressed input through a pipe into a streaming decoder
package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/decode"
)

var (
	// ErrTryAgain is returned when no slot became available within the timeout
	ErrTryAgain = errors.New("try again later")

	// ErrFormatChanged is returned by DequeueOutput when OutputFormat has a new value
	ErrFormatChanged = errors.New("output format changed")

	// ErrCodecState is returned when a call is not valid in the codec's current state
	ErrCodecState = errors.New("invalid codec state")
)

const (
	slotCount         = 4
	outputSlotSamples = 4096
)

// InputSlot carries compressed bytes into a codec
type InputSlot struct {
	Index int
	Data  []byte
}

// OutputSlot carries decoded little-endian int16 PCM out of a codec
type OutputSlot struct {
	Index int
	Data  []byte
	EOS   bool
}

// Codec decodes compressed frames through input and output slot queues
type Codec interface {
	Configure(format audio.Format) error
	Start() error
	DequeueInput(timeout time.Duration) (*InputSlot, error)
	QueueInput(slot *InputSlot, size int, eos bool) error
	DequeueOutput(timeout time.Duration) (*OutputSlot, error)
	ReleaseOutput(slot *OutputSlot) error
	OutputFormat() audio.Format
	Stop() error
	Release() error
}

// DecoderFunc builds a streaming decoder over the compressed byte stream r
type DecoderFunc func(format audio.Format, r io.Reader) (decode.Decoder, error)

type codecState int

const (
	stateCreated codecState = iota
	stateConfigured
	stateStarted
	stateStopped
	stateReleased
)

type queuedInput struct {
	slot *InputSlot
	size int
	eos  bool
}

type codecEvent struct {
	slot   *OutputSlot
	format *audio.Format
	err    error
}

// AsyncCodec runs a decode.Decoder on its own goroutine behind the Codec slot API
type AsyncCodec struct {
	newDecoder DecoderFunc

	mu        sync.Mutex
	state     codecState
	format    audio.Format
	outFormat audio.Format
	inputEOS  bool

	freeIn  chan *InputSlot
	queued  chan queuedInput
	freeOut chan *OutputSlot
	events  chan codecEvent

	pr       *io.PipeReader
	pw       *io.PipeWriter
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewAsyncCodec creates a codec that decodes with decoders built by newDecoder
func NewAsyncCodec(newDecoder DecoderFunc) *AsyncCodec {
	return &AsyncCodec{newDecoder: newDecoder}
}

// NewCodec picks the decoder for a track: ffmpeg for tracks that need it, native otherwise
func NewCodec(track Track, opts Options) (Codec, error) {
	if !audio.IsAudio(track.Format.Codec) {
		return nil, fmt.Errorf("%w: %q", audio.ErrUnsupportedFormat, track.Format.Codec)
	}

	if track.NeedsFFmpeg() {
		ffopts := decode.FFmpegOptions{
			Path:        opts.FFmpegPath,
			InputFormat: track.InputFormat,
			StreamIndex: track.StreamIndex,
		}
		return NewAsyncCodec(func(format audio.Format, r io.Reader) (decode.Decoder, error) {
			return decode.NewFFmpeg(format, r, ffopts)
		}), nil
	}

	return NewAsyncCodec(decode.New), nil
}

// Configure sets the declared input format
func (c *AsyncCodec) Configure(format audio.Format) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateCreated && c.state != stateConfigured {
		return fmt.Errorf("%w: configure after start", ErrCodecState)
	}
	c.format = format
	c.outFormat = audio.Format{
		Codec:      audio.CodecPCM,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   16,
	}
	c.state = stateConfigured
	return nil
}

// Start allocates slots and launches the feeder and decoder goroutines
func (c *AsyncCodec) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateConfigured {
		return fmt.Errorf("%w: start before configure", ErrCodecState)
	}

	c.freeIn = make(chan *InputSlot, slotCount)
	c.queued = make(chan queuedInput, slotCount)
	c.freeOut = make(chan *OutputSlot, slotCount)
	c.events = make(chan codecEvent, slotCount+1)
	c.done = make(chan struct{})
	c.pr, c.pw = io.Pipe()

	for i := 0; i < slotCount; i++ {
		c.freeIn <- &InputSlot{Index: i, Data: make([]byte, FrameSize)}
		c.freeOut <- &OutputSlot{Index: i, Data: make([]byte, 0, outputSlotSamples*2)}
	}

	c.wg.Add(2)
	go c.feed()
	go c.decode(c.format)

	c.state = stateStarted
	return nil
}

// feed writes queued input into the decoder pipe
func (c *AsyncCodec) feed() {
	defer c.wg.Done()

	broken := false
	for {
		select {
		case q := <-c.queued:
			if q.size > 0 && !broken {
				if _, err := c.pw.Write(q.slot.Data[:q.size]); err != nil {
					// Decoder stopped reading, drop the rest
					broken = true
				}
			}
			c.freeIn <- q.slot
			if q.eos {
				c.pw.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// decode runs the streaming decoder and publishes output slots
func (c *AsyncCodec) decode(format audio.Format) {
	defer c.wg.Done()
	defer c.pr.Close()

	dec, err := c.newDecoder(format, c.pr)
	if err != nil {
		c.emit(codecEvent{err: err})
		return
	}
	defer dec.Close()

	current := dec.Format()
	if !c.emitFormat(current) {
		return
	}

	pcm := make([]int16, outputSlotSamples)
	for {
		var slot *OutputSlot
		select {
		case slot = <-c.freeOut:
		case <-c.done:
			return
		}

		n, err := dec.Read(pcm)
		if err != nil && err != io.EOF {
			c.freeOut <- slot
			c.emit(codecEvent{err: err})
			return
		}

		if f := dec.Format(); f != current {
			current = f
			if !c.emitFormat(current) {
				return
			}
		}

		slot.Data = slot.Data[:n*2]
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(slot.Data[i*2:], uint16(pcm[i]))
		}
		slot.EOS = err == io.EOF

		if n == 0 && !slot.EOS {
			c.freeOut <- slot
			continue
		}
		if !c.emit(codecEvent{slot: slot}) {
			return
		}
		if slot.EOS {
			return
		}
	}
}

func (c *AsyncCodec) emitFormat(f audio.Format) bool {
	return c.emit(codecEvent{format: &f})
}

func (c *AsyncCodec) emit(ev codecEvent) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// DequeueInput returns a free input slot or ErrTryAgain after timeout
func (c *AsyncCodec) DequeueInput(timeout time.Duration) (*InputSlot, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot := <-c.freeIn:
		return slot, nil
	case <-timer.C:
		return nil, ErrTryAgain
	case <-c.done:
		return nil, fmt.Errorf("%w: codec stopped", ErrCodecState)
	}
}

// QueueInput hands size bytes of slot to the decoder. eos marks the end of input.
func (c *AsyncCodec) QueueInput(slot *InputSlot, size int, eos bool) error {
	if err := c.requireStarted(); err != nil {
		return err
	}
	if slot == nil || size < 0 || size > len(slot.Data) {
		return fmt.Errorf("invalid input slot size %d", size)
	}

	c.mu.Lock()
	if c.inputEOS {
		c.mu.Unlock()
		return fmt.Errorf("%w: input queued after end of stream", ErrCodecState)
	}
	c.inputEOS = eos
	c.mu.Unlock()

	c.queued <- queuedInput{slot: slot, size: size, eos: eos}
	return nil
}

// DequeueOutput returns the next decoded slot, ErrFormatChanged, ErrTryAgain or a decoder error
func (c *AsyncCodec) DequeueOutput(timeout time.Duration) (*OutputSlot, error) {
	if err := c.requireStarted(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-c.events:
		switch {
		case ev.err != nil:
			return nil, ev.err
		case ev.format != nil:
			c.mu.Lock()
			c.outFormat = *ev.format
			c.mu.Unlock()
			return nil, ErrFormatChanged
		default:
			return ev.slot, nil
		}
	case <-timer.C:
		return nil, ErrTryAgain
	case <-c.done:
		return nil, fmt.Errorf("%w: codec stopped", ErrCodecState)
	}
}

// ReleaseOutput returns an output slot to the codec
func (c *AsyncCodec) ReleaseOutput(slot *OutputSlot) error {
	if err := c.requireStarted(); err != nil {
		return err
	}
	if slot == nil {
		return errors.New("nil output slot")
	}

	slot.Data = slot.Data[:0]
	slot.EOS = false
	select {
	case c.freeOut <- slot:
		return nil
	default:
		return fmt.Errorf("output slot %d was not dequeued", slot.Index)
	}
}

// OutputFormat returns the most recently announced output format
func (c *AsyncCodec) OutputFormat() audio.Format {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outFormat
}

// Stop terminates the goroutines and waits for them to exit
func (c *AsyncCodec) Stop() error {
	c.mu.Lock()
	state := c.state
	if state == stateStarted {
		c.state = stateStopped
	}
	c.mu.Unlock()

	if state != stateStarted {
		return fmt.Errorf("%w: stop without start", ErrCodecState)
	}

	c.stopOnce.Do(func() {
		close(c.done)
		c.pw.CloseWithError(io.ErrClosedPipe)
		c.pr.CloseWithError(io.ErrClosedPipe)
		c.wg.Wait()
	})
	return nil
}

// Release frees the codec. A running codec is stopped first.
func (c *AsyncCodec) Release() error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state == stateStarted {
		if err := c.Stop(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.state = stateReleased
	c.mu.Unlock()
	return nil
}

func (c *AsyncCodec) requireStarted() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateStarted {
		return fmt.Errorf("%w: codec not started", ErrCodecState)
	}
	return nil
}
