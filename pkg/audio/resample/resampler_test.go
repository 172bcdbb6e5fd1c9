// ABOUTME: Tests for downmixing and linear resampling
// ABOUTME: Covers anchors, special lengths and the stereo 8 kHz example
package resample

import (
	"reflect"
	"testing"
)

func TestDownmix(t *testing.T) {
	tests := []struct {
		name     string
		input    []int16
		channels int
		expected []int16
	}{
		{"mono passthrough", []int16{1, 2, 3}, 1, []int16{1, 2, 3}},
		{"zero channels passthrough", []int16{5, 6}, 0, []int16{5, 6}},
		{"stereo average", []int16{100, 200, 300, 400}, 2, []int16{150, 350}},
		{"stereo truncates toward zero", []int16{1, 2, -1, -2}, 2, []int16{1, -1}},
		{"stereo extremes", []int16{32767, 32767, -32768, -32768}, 2, []int16{32767, -32768}},
		{"stereo partial frame dropped", []int16{10, 20, 30}, 2, []int16{15}},
		{"six channels keep first", []int16{1, 9, 9, 9, 9, 9, 2, 8, 8, 8, 8, 8}, 6, []int16{1, 2}},
		{"empty stereo", []int16{}, 2, []int16{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Downmix(tt.input, tt.channels)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestResampleSpecialCases(t *testing.T) {
	tests := []struct {
		name     string
		inRate   int
		input    []int16
		expected []int16
	}{
		{"equal rate identity", 16000, []int16{1, 2, 3}, []int16{1, 2, 3}},
		{"zero rate unresampled", 0, []int16{7, 8}, []int16{7, 8}},
		{"negative rate unresampled", -5, []int16{7, 8}, []int16{7, 8}},
		{"empty input", 8000, []int16{}, []int16{}},
		{"single sample flat fill", 8000, []int16{42}, []int16{42, 42}},
		{"degenerate target returns input", 48000, []int16{3, 4}, []int16{3, 4}},
		{"target one keeps first", 48000, []int16{5, 6, 7}, []int16{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.inRate, 16000).Resample(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestResampleUpsample(t *testing.T) {
	result := New(8000, 16000).Resample([]int16{150, 350})
	expected := []int16{150, 216, 283, 350}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("expected %v, got %v", expected, result)
	}
}

func TestResampleAnchors(t *testing.T) {
	rates := []int{8000, 11025, 22050, 44100, 48000, 96000}
	input := make([]int16, 4801)
	for i := range input {
		input[i] = int16((i*37)%2000 - 1000)
	}
	input[0] = -12345
	input[len(input)-1] = 23456

	for _, rate := range rates {
		r := New(rate, 16000)
		result := r.Resample(input)
		if len(result) != r.OutputLength(len(input)) {
			t.Errorf("rate %d: expected length %d, got %d", rate, r.OutputLength(len(input)), len(result))
			continue
		}
		if result[0] != input[0] {
			t.Errorf("rate %d: first sample %d, expected %d", rate, result[0], input[0])
		}
		if result[len(result)-1] != input[len(input)-1] {
			t.Errorf("rate %d: last sample %d, expected %d", rate, result[len(result)-1], input[len(input)-1])
		}
	}
}

func TestResampleStaysWithinNeighbours(t *testing.T) {
	input := []int16{-32768, 32767, -32768, 32767, 0, 100}
	result := New(11025, 16000).Resample(input)
	for i, s := range result {
		if s < -32768 || s > 32767 {
			t.Fatalf("sample %d out of range: %d", i, s)
		}
	}
}

func TestOutputLength(t *testing.T) {
	tests := []struct {
		inRate   int
		n        int
		expected int
	}{
		{8000, 2, 4},
		{44100, 44100, 16000},
		{48000, 3, 1},
		{48000, 2, 0},
		{0, 100, 0},
	}

	for _, tt := range tests {
		result := New(tt.inRate, 16000).OutputLength(tt.n)
		if result != tt.expected {
			t.Errorf("OutputLength(%d @ %d Hz): expected %d, got %d", tt.n, tt.inRate, tt.expected, result)
		}
	}
}

func TestNormalize(t *testing.T) {
	result := Normalize([]int16{100, 200, 300, 400}, 8000, 2)
	expected := []int16{150, 216, 283, 350}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("expected %v, got %v", expected, result)
	}
}
