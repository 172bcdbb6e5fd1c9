// ABOUTME: RIFF/WAVE container probe
// ABOUTME: Locates the PCM data chunk with go-audio/wav
package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// WAVE format tags
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatALaw       = 6
	wavFormatMuLaw      = 7
	wavFormatExtensible = 0xFFFE
)

// Every KSDATAFORMAT_SUBTYPE GUID ends with these bytes after its 16-bit format tag
var subFormatGUIDTail = []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

func probeWAV(src *fileSource, size int64) error {
	r := io.NewSectionReader(src.file, 0, size)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return fmt.Errorf("invalid wav header")
	}

	format := audio.Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}

	formatTag := dec.WavAudioFormat
	if formatTag == wavFormatExtensible {
		sub, err := wavSubFormat(io.NewSectionReader(src.file, 0, size))
		if err != nil {
			log.Printf("wav: %v, handing the file to ffmpeg", err)
		} else {
			formatTag = sub
		}
	}

	switch formatTag {
	case wavFormatPCM:
		format.Codec = audio.CodecPCM
	case wavFormatFloat:
		format.Codec = "audio/x-wav-float"
	case wavFormatALaw:
		format.Codec = "audio/g711-alaw"
	case wavFormatMuLaw:
		format.Codec = "audio/g711-mlaw"
	default:
		format.Codec = fmt.Sprintf("audio/x-wav-%d", formatTag)
	}

	if format.Codec != audio.CodecPCM {
		// Float and compressed WAVE payloads go to ffmpeg with the whole file
		src.addTrack(Track{Format: format, StreamIndex: 0}, 0, size)
		return nil
	}

	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("wav data chunk not found: %w", err)
	}

	offset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to locate wav data: %w", err)
	}

	// Streaming writers leave the data size unset, clamp to what the file holds
	length := dec.PCMLen()
	if length <= 0 || offset+length > size {
		length = size - offset
	}

	src.addTrack(Track{Format: format, StreamIndex: -1}, offset, length)
	return nil
}

// wavSubFormat returns the format tag carried in the SubFormat GUID of a
// WAVE_FORMAT_EXTENSIBLE fmt chunk
func wavSubFormat(r io.Reader) (uint16, error) {
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return 0, fmt.Errorf("failed to parse riff header: %w", err)
	}

	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("fmt chunk not found: %w", err)
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}

		body := make([]byte, ch.Size)
		if err := ch.ReadLE(body); err != nil {
			return 0, fmt.Errorf("failed to read fmt chunk: %w", err)
		}
		// 16 byte base header, cbSize, valid bits, channel mask, then the GUID
		if len(body) < 40 {
			return 0, fmt.Errorf("extensible fmt chunk too short: %d bytes", len(body))
		}
		guid := body[24:40]
		if !bytes.Equal(guid[2:], subFormatGUIDTail) {
			return 0, fmt.Errorf("unknown sub format %x", guid)
		}
		return binary.LittleEndian.Uint16(guid[0:2]), nil
	}
}
