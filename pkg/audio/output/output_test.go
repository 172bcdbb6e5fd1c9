// ABOUTME: Audio output tests
// ABOUTME: Checks chunked playback and volume scaling without a device
package output

import (
	"context"
	"errors"
	"testing"
)

type recordingOutput struct {
	rate, channels int
	writes         [][]int16
	drained        bool
	openErr        error
}

func (r *recordingOutput) Open(sampleRate, channels int) error {
	r.rate, r.channels = sampleRate, channels
	return r.openErr
}

func (r *recordingOutput) Write(samples []int16) error {
	r.writes = append(r.writes, append([]int16(nil), samples...))
	return nil
}

func (r *recordingOutput) Drain(ctx context.Context) error {
	r.drained = true
	return nil
}

func (r *recordingOutput) Close() error { return nil }

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestPlayChunks(t *testing.T) {
	samples := make([]int16, chunkFrames*2*2+10)
	for i := range samples {
		samples[i] = int16(i)
	}

	out := &recordingOutput{}
	if err := Play(context.Background(), out, samples, 16000, 2); err != nil {
		t.Fatal(err)
	}

	if out.rate != 16000 || out.channels != 2 {
		t.Errorf("opened with %d Hz x%d", out.rate, out.channels)
	}
	if len(out.writes) != 3 {
		t.Fatalf("writes = %d, want 3", len(out.writes))
	}
	if len(out.writes[2]) != 10 || out.writes[2][0] != int16(chunkFrames*4) {
		t.Errorf("last write = %v", out.writes[2])
	}
	if !out.drained {
		t.Error("Play should drain the output")
	}
}

func TestPlayErrors(t *testing.T) {
	if err := Play(context.Background(), &recordingOutput{}, nil, 16000, 0); err == nil {
		t.Error("expected error for zero channels")
	}

	openErr := errors.New("no device")
	if err := Play(context.Background(), &recordingOutput{openErr: openErr}, []int16{1}, 16000, 1); !errors.Is(err, openErr) {
		t.Errorf("err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := &recordingOutput{}
	if err := Play(ctx, out, []int16{1, 2}, 16000, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if len(out.writes) != 0 {
		t.Error("cancelled playback should not write")
	}
}

func TestApplyVolume(t *testing.T) {
	tests := []struct {
		name   string
		volume int
		muted  bool
		want   []int16
	}{
		{"full", 100, false, []int16{1000, -1000}},
		{"half", 50, false, []int16{500, -500}},
		{"muted", 100, true, []int16{0, 0}},
		{"silent", 0, false, []int16{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyVolume([]int16{1000, -1000}, tt.volume, tt.muted)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestSetVolumeClamps(t *testing.T) {
	o := NewOto()
	o.SetVolume(150)
	if o.volume != 100 {
		t.Errorf("volume = %d", o.volume)
	}
	o.SetVolume(-5)
	if o.volume != 0 {
		t.Errorf("volume = %d", o.volume)
	}
}

func TestWriteBeforeOpen(t *testing.T) {
	if err := NewOto().Write([]int16{1}); err == nil {
		t.Error("expected error before Open")
	}
}
