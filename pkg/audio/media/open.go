// ABOUTME: Container detection for input files
// ABOUTME: Sniffs magic bytes and falls back to ffprobe for anything else
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

const sniffSize = 12

var errForeignContainer = errors.New("container needs ffprobe")

// isForeignContainer matches containers only ffprobe can list
func isForeignContainer(head []byte) bool {
	switch {
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return true
	case bytes.HasPrefix(head, []byte("#!AMR")):
		return true
	case bytes.HasPrefix(head, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return true
	}
	return false
}

// Open detects the container of the file at path and returns a Source listing its tracks
func Open(path string, opts Options) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	src := newFileSource(f)
	if err := probe(src, path, stat.Size(), opts); err != nil {
		f.Close()
		return nil, err
	}

	log.Printf("Opened %s: %d track(s)", path, len(src.tracks))
	return src, nil
}

func probe(src *fileSource, path string, size int64, opts Options) error {
	head := make([]byte, sniffSize)
	n, err := src.file.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read input header: %w", err)
	}
	head = head[:n]

	var native error
	switch {
	case n == 0:
		return fmt.Errorf("%w: empty file", audio.ErrCorruptContainer)
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		native = probeWAV(src, size)
	case bytes.HasPrefix(head, []byte("fLaC")):
		native = probeFLAC(src, size)
	case bytes.HasPrefix(head, []byte("OggS")):
		native = probeOgg(src, size)
	case isForeignContainer(head):
		// MP4, AMR and Matroska payloads can contain MPEG-like sync patterns
		native = errForeignContainer
	default:
		native = probeMPEG(src, size)
	}

	if native == nil {
		return nil
	}

	// Unknown or unreadable by the native probes, let ffprobe have a look
	src.tracks = nil
	src.payloads = nil
	if err := probeFFprobe(src, path, size, opts.FFprobePath); err != nil {
		log.Printf("ffprobe fallback failed for %s: %v", path, err)
		return fmt.Errorf("%w: %v", audio.ErrCorruptContainer, native)
	}
	return nil
}
