// ABOUTME: MPEG audio elementary stream probe
// ABOUTME: Parses ID3v2, MPEG layer and ADTS frame headers
package media

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// maxSyncScan bounds how far past the tags the first frame header may sit
const maxSyncScan = 4096

var errNoFrameSync = errors.New("no mpeg frame sync found")

var mpeg1Rates = [3]int{44100, 48000, 32000}

var adtsRates = [13]int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

func probeMPEG(src *fileSource, size int64) error {
	start, err := skipID3v2(src.file)
	if err != nil {
		return err
	}

	buf := make([]byte, maxSyncScan)
	n, err := src.file.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read mpeg header: %w", err)
	}
	buf = buf[:n]

	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] != 0xFF || buf[i+1]&0xE0 != 0xE0 {
			continue
		}
		hdr := buf[i : i+4]
		offset := start + int64(i)

		// ADTS has a 12-bit sync word and layer 00
		if hdr[1]&0xF6 == 0xF0 {
			format, ok := parseADTS(hdr)
			if !ok || i+6 > len(buf) {
				continue
			}
			length := adtsFrameLength(buf[i : i+6])
			if !followedBySync(src.file, size, offset, length, hdr, sameADTSStream) {
				continue
			}
			src.addTrack(Track{Format: format, StreamIndex: -1, InputFormat: "aac"}, 0, size)
			return nil
		}

		if hdr[1]&0x06 == 0 {
			continue
		}
		format, ok := parseMPEGAudio(hdr)
		if !ok {
			continue
		}
		length := mpegFrameLength(hdr, format.SampleRate)
		if !followedBySync(src.file, size, offset, length, hdr, sameMPEGStream) {
			continue
		}
		track := Track{Format: format, StreamIndex: -1}
		if format.Codec != audio.CodecMP3 {
			track.InputFormat = "mp3"
		}
		src.addTrack(track, 0, size)
		return nil
	}

	return errNoFrameSync
}

// followedBySync reports whether the frame at offset is followed by another
// header of the same stream, or ends exactly at the end of the file.
// A sync pattern alone shows up in plenty of non-MPEG payloads.
func followedBySync(r io.ReaderAt, size, offset int64, length int, hdr []byte, same func(a, b []byte) bool) bool {
	if length <= 0 {
		return false
	}
	next := offset + int64(length)
	if next == size {
		return true
	}
	if next+4 > size {
		return false
	}

	nextHdr := make([]byte, 4)
	if _, err := r.ReadAt(nextHdr, next); err != nil {
		return false
	}
	return same(hdr, nextHdr)
}

func sameMPEGStream(a, b []byte) bool {
	// version, layer and sample rate stay fixed across frames
	return b[0] == 0xFF && b[1]&0xFE == a[1]&0xFE && b[2]&0x0C == a[2]&0x0C
}

func sameADTSStream(a, b []byte) bool {
	return b[0] == 0xFF && b[1]&0xF6 == 0xF0 && b[2]&0x3C == a[2]&0x3C
}

// Bitrates in kbps by bitrate index
var (
	mpeg1L1Bitrates = [15]int{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448}
	mpeg1L2Bitrates = [15]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384}
	mpeg1L3Bitrates = [15]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
	mpeg2L1Bitrates = [15]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256}
	mpeg2L3Bitrates = [15]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}
)

// mpegFrameLength returns the byte length of the frame starting with hdr,
// or 0 for free-format frames whose length is not in the header
func mpegFrameLength(hdr []byte, rate int) int {
	version := (hdr[1] >> 3) & 0x03
	layer := (hdr[1] >> 1) & 0x03
	index := (hdr[2] >> 4) & 0x0F
	padding := int((hdr[2] >> 1) & 0x01)
	if index == 0 || index == 0x0F || rate <= 0 {
		return 0
	}

	mpeg1 := version == 3
	switch layer {
	case 3: // Layer I
		table := mpeg2L1Bitrates
		if mpeg1 {
			table = mpeg1L1Bitrates
		}
		return (12*table[index]*1000/rate + padding) * 4
	case 2: // Layer II
		table := mpeg2L3Bitrates
		if mpeg1 {
			table = mpeg1L2Bitrates
		}
		return 144*table[index]*1000/rate + padding
	default: // Layer III
		if mpeg1 {
			return 144*mpeg1L3Bitrates[index]*1000/rate + padding
		}
		return 72*mpeg2L3Bitrates[index]*1000/rate + padding
	}
}

// adtsFrameLength reads the 13-bit frame length, header included, from a 6 byte ADTS prefix
func adtsFrameLength(hdr []byte) int {
	length := int(hdr[3]&0x03)<<11 | int(hdr[4])<<3 | int(hdr[5]>>5)
	if length < 7 {
		return 0
	}
	return length
}

// skipID3v2 returns the offset just past any ID3v2 tag at the start of r
func skipID3v2(r io.ReaderAt) (int64, error) {
	hdr := make([]byte, 10)
	n, err := r.ReadAt(hdr, 0)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read id3 header: %w", err)
	}
	if n < 10 || string(hdr[0:3]) != "ID3" {
		return 0, nil
	}

	// Tag size is a 28-bit syncsafe integer
	size := int64(hdr[6]&0x7F)<<21 | int64(hdr[7]&0x7F)<<14 | int64(hdr[8]&0x7F)<<7 | int64(hdr[9]&0x7F)
	offset := 10 + size
	if hdr[5]&0x10 != 0 {
		offset += 10
	}
	return offset, nil
}

// parseMPEGAudio reads the sample rate and channel mode of an MPEG audio frame header
func parseMPEGAudio(hdr []byte) (audio.Format, bool) {
	version := (hdr[1] >> 3) & 0x03
	layer := (hdr[1] >> 1) & 0x03
	bitrate := (hdr[2] >> 4) & 0x0F
	rateIndex := (hdr[2] >> 2) & 0x03

	if version == 1 || bitrate == 0x0F || rateIndex == 3 {
		return audio.Format{}, false
	}

	rate := mpeg1Rates[rateIndex]
	switch version {
	case 2: // MPEG-2
		rate /= 2
	case 0: // MPEG-2.5
		rate /= 4
	}

	channels := 2
	if (hdr[3]>>6)&0x03 == 3 {
		channels = 1
	}

	codec := audio.CodecMP3
	switch layer {
	case 2:
		codec = "audio/mpeg-L2"
	case 3:
		codec = "audio/mpeg-L1"
	}

	return audio.Format{Codec: codec, SampleRate: rate, Channels: channels}, true
}

// parseADTS reads the sampling frequency and channel configuration of an ADTS header
func parseADTS(hdr []byte) (audio.Format, bool) {
	rateIndex := (hdr[2] >> 2) & 0x0F
	if int(rateIndex) >= len(adtsRates) {
		return audio.Format{}, false
	}
	channels := int((hdr[2]&0x01)<<2 | (hdr[3]>>6)&0x03)

	return audio.Format{
		Codec:      audio.CodecAAC,
		SampleRate: adtsRates[rateIndex],
		Channels:   channels,
	}, true
}
