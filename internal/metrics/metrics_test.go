// ABOUTME: Tests for the Prometheus metrics
// ABOUTME: Gathers from a private registry and checks recorded values
package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return values
}

func TestObservers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDecode("audio/mpeg", 20*time.Millisecond, nil)
	m.ObserveDecode("", time.Millisecond, errors.New("boom"))
	m.ObserveConversion(time.Second, 32000, nil)
	m.ObserveConversion(time.Second, 0, errors.New("boom"))
	m.ObserveJob("done")
	m.SetQueued(3)

	got := gather(t, reg)
	want := map[string]float64{
		"whisperprep_decodes_total,codec=audio/mpeg,outcome=ok": 1,
		"whisperprep_decodes_total,codec=unknown,outcome=error": 1,
		"whisperprep_decode_duration_seconds":                   2,
		"whisperprep_conversions_total,outcome=ok":              1,
		"whisperprep_conversions_total,outcome=error":           1,
		"whisperprep_converted_audio_seconds_total":             2,
		"whisperprep_queued_jobs":                               3,
		"whisperprep_jobs_total,state=done":                     1,
	}

	for key, v := range want {
		if got[key] != v {
			t.Errorf("%s = %v, want %v", key, got[key], v)
		}
	}
}

func TestNewRegistersTwiceOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
