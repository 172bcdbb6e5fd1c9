// ABOUTME: Track sources backed by files on disk
// ABOUTME: Hands out fixed-size compressed frames of the selected track
package media

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// FrameSize is the maximum number of bytes ReadFrame returns
const FrameSize = 8192

// Track describes one stream in a container
type Track struct {
	Index  int
	Format audio.Format

	// StreamIndex is the container stream ffmpeg should map, -1 for natively decoded tracks
	StreamIndex int
	// InputFormat is an ffmpeg demuxer hint for bare elementary streams
	InputFormat string
}

// NeedsFFmpeg reports whether the track is decoded by an external ffmpeg process
func (t Track) NeedsFFmpeg() bool {
	return t.StreamIndex >= 0 || t.InputFormat != ""
}

// Source extracts compressed frames from a container
type Source interface {
	// Tracks lists every stream found in the container
	Tracks() []Track

	// SelectTrack chooses the track ReadFrame reads from
	SelectTrack(index int) error

	// ReadFrame copies the current frame into buf, io.EOF when no frames remain
	ReadFrame(buf []byte) (int, error)

	// Advance moves past the current frame
	Advance() error

	// Close releases the underlying file
	Close() error
}

// Options configures external tool lookup
type Options struct {
	FFmpegPath  string
	FFprobePath string
}

type payload struct {
	offset int64
	size   int64
}

// fileSource serves track payloads from a file as FrameSize chunks
type fileSource struct {
	file     *os.File
	tracks   []Track
	payloads []payload
	selected int
	reader   io.Reader
	frame    []byte
	pending  bool
}

func newFileSource(f *os.File) *fileSource {
	return &fileSource{file: f, selected: -1}
}

func (s *fileSource) addTrack(t Track, offset, size int64) {
	t.Index = len(s.tracks)
	s.tracks = append(s.tracks, t)
	s.payloads = append(s.payloads, payload{offset: offset, size: size})
}

func (s *fileSource) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *fileSource) SelectTrack(index int) error {
	if index < 0 || index >= len(s.tracks) {
		return fmt.Errorf("track index %d out of range (0-%d)", index, len(s.tracks)-1)
	}
	p := s.payloads[index]
	s.selected = index
	s.reader = io.NewSectionReader(s.file, p.offset, p.size)
	s.frame = make([]byte, FrameSize)
	s.pending = false
	return nil
}

func (s *fileSource) ReadFrame(buf []byte) (int, error) {
	if s.selected < 0 {
		return 0, errors.New("no track selected")
	}

	if !s.pending {
		n, err := io.ReadFull(s.reader, s.frame)
		if err == io.EOF {
			return 0, io.EOF
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("failed to read frame: %w", err)
		}
		s.frame = s.frame[:n]
		s.pending = true
	}

	if len(buf) < len(s.frame) {
		return 0, io.ErrShortBuffer
	}
	return copy(buf, s.frame), nil
}

func (s *fileSource) Advance() error {
	if s.selected < 0 {
		return errors.New("no track selected")
	}
	s.pending = false
	s.frame = s.frame[:cap(s.frame)]
	return nil
}

func (s *fileSource) Close() error {
	return s.file.Close()
}
