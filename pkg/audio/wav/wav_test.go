// ABOUTME: Tests for WAV writing, reading and inspection
// ABOUTME: Verifies header layout, round trips and cleanup on failure
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	gowav "github.com/go-audio/wav"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

func TestWriteFileHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	samples := []int16{150, 216, 283, 350}

	if err := WriteFile(path, samples, 16000); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	if len(data) != HeaderSize+8 {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+8, len(data))
	}

	checks := []struct {
		name     string
		got      []byte
		expected string
	}{
		{"riff id", data[0:4], "RIFF"},
		{"wave id", data[8:12], "WAVE"},
		{"fmt id", data[12:16], "fmt "},
		{"data id", data[36:40], "data"},
	}
	for _, c := range checks {
		if string(c.got) != c.expected {
			t.Errorf("%s: expected %q, got %q", c.name, c.expected, c.got)
		}
	}

	le := binary.LittleEndian
	if got := le.Uint32(data[4:8]); got != 8+36 {
		t.Errorf("riff size: expected 44, got %d", got)
	}
	if got := le.Uint32(data[16:20]); got != 16 {
		t.Errorf("fmt size: expected 16, got %d", got)
	}
	if got := le.Uint16(data[20:22]); got != 1 {
		t.Errorf("audio format: expected 1, got %d", got)
	}
	if got := le.Uint16(data[22:24]); got != 1 {
		t.Errorf("channels: expected 1, got %d", got)
	}
	if got := le.Uint32(data[24:28]); got != 16000 {
		t.Errorf("sample rate: expected 16000, got %d", got)
	}
	if got := le.Uint32(data[28:32]); got != 32000 {
		t.Errorf("byte rate: expected 32000, got %d", got)
	}
	if got := le.Uint16(data[32:34]); got != 2 {
		t.Errorf("block align: expected 2, got %d", got)
	}
	if got := le.Uint16(data[34:36]); got != 16 {
		t.Errorf("bits per sample: expected 16, got %d", got)
	}
	if got := le.Uint32(data[40:44]); got != 8 {
		t.Errorf("data size: expected 8, got %d", got)
	}
	if got := int16(le.Uint16(data[44:46])); got != 150 {
		t.Errorf("first sample: expected 150, got %d", got)
	}
}

func TestWriteFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")

	if err := WriteFile(path, nil, 16000); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if info.Size() != HeaderSize {
		t.Errorf("expected %d bytes, got %d", HeaderSize, info.Size())
	}

	samples, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("expected no samples, got %d", len(samples))
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
	}{
		{"single", []int16{1}},
		{"extremes", []int16{-32768, 32767, 0}},
		{"ramp", func() []int16 {
			s := make([]int16, 1000)
			for i := range s {
				s[i] = int16(i*65 - 32000)
			}
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rt.wav")
			if err := WriteFile(path, tt.samples, 16000); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			pcm, err := ReadPCMFile(path)
			if err != nil {
				t.Fatalf("ReadPCMFile failed: %v", err)
			}
			if len(pcm) != len(tt.samples) {
				t.Fatalf("expected %d samples, got %d", len(tt.samples), len(pcm))
			}
			for i := range pcm {
				if pcm[i] != tt.samples[i] {
					t.Fatalf("sample %d: expected %d, got %d", i, tt.samples[i], pcm[i])
				}
			}

			floats, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			for i, f := range floats {
				want := float32(tt.samples[i]) / 32768.0
				if math.Abs(float64(f-want)) > 1e-7 {
					t.Fatalf("float %d: expected %f, got %f", i, want, f)
				}
			}
		})
	}
}

func TestWrittenFileParsesWithGenericDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generic.wav")
	samples := []int16{10, -10, 20, -20}
	if err := WriteFile(path, samples, 16000); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	dec := gowav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("generic decoder rejected file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		t.Fatalf("FullPCMBuffer failed: %v", err)
	}
	if buf.Format.SampleRate != 16000 || buf.Format.NumChannels != 1 {
		t.Errorf("unexpected format: %+v", buf.Format)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Data))
	}
	for i := range samples {
		if buf.Data[i] != int(samples[i]) {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], buf.Data[i])
		}
	}
}

func TestReadTruncatedHeader(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"one byte", 1},
		{"43 bytes", 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(make([]byte, tt.size)))
			if !errors.Is(err, audio.ErrTruncatedHeader) {
				t.Errorf("expected ErrTruncatedHeader, got %v", err)
			}
		})
	}
}

func TestReadOddTrailingByte(t *testing.T) {
	data := make([]byte, HeaderSize)
	data = append(data, 0x00, 0x40, 0x7F)

	samples, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0] != 0.5 {
		t.Errorf("expected 0.5, got %f", samples[0])
	}
}

type failingFile struct {
	*os.File
}

func (f failingFile) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteFileFailureRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fail.wav")

	orig := createOutput
	createOutput = func(p string) (outputFile, error) {
		f, err := os.Create(p)
		if err != nil {
			return nil, err
		}
		return failingFile{f}, nil
	}
	defer func() { createOutput = orig }()

	if err := WriteFile(path, []int16{1, 2, 3}, 16000); err == nil {
		t.Fatal("expected write error")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, stat returned %v", err)
	}
}

func TestWriteFileBadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.wav")

	if err := WriteFile(path, []int16{1}, 16000); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file, stat returned %v", err)
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()

	canonical := filepath.Join(dir, "canonical.wav")
	if err := WriteFile(canonical, make([]int16, 16000), 16000); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	other := filepath.Join(dir, "other.wav")
	if err := WriteFile(other, make([]int16, 8000), 8000); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	info, err := Inspect(canonical)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !info.Canonical() {
		t.Errorf("expected canonical file, got %+v", info)
	}
	if info.PCMBytes != 32000 {
		t.Errorf("expected 32000 pcm bytes, got %d", info.PCMBytes)
	}
	if info.Duration.Seconds() != 1 {
		t.Errorf("expected 1s duration, got %v", info.Duration)
	}

	info, err = Inspect(other)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Canonical() {
		t.Error("8 kHz file reported canonical")
	}
}

func TestInspectRejectsNonWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff file at all, just text"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Inspect(path); !errors.Is(err, audio.ErrCorruptContainer) {
		t.Errorf("expected ErrCorruptContainer, got %v", err)
	}
}
