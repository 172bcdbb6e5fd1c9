// ABOUTME: Tests for the HTTP job server
// ABOUTME: Drives the API through httptest with a fake transcription engine
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Resonate-Protocol/whisperprep/internal/metrics"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/wav"
	"github.com/Resonate-Protocol/whisperprep/pkg/pipeline"
	"github.com/Resonate-Protocol/whisperprep/pkg/transcribe"
)

type echoEngine struct{}

func (echoEngine) Transcribe(ctx context.Context, samples []float32) (*transcribe.Result, error) {
	return &transcribe.Result{Text: "ok"}, nil
}

func (echoEngine) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	service, err := transcribe.NewService(transcribe.ServiceConfig{
		Processor: pipeline.New(pipeline.Config{Observer: m}),
		Engine:    echoEngine{},
		WorkDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}

	s := New(Config{Name: "test", Port: 0, InputDir: t.TempDir()}, service, m, reg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		service.Close()
	})
	return s, ts
}

// writeInput places a short WAV inside the server's input directory
func writeInput(t *testing.T, s *Server) string {
	t.Helper()
	path := filepath.Join(s.inputRoot, "speech.wav")
	if err := wav.WriteFile(path, []int16{1, 2, 3, 4}, 16000); err != nil {
		t.Fatal(err)
	}
	return path
}

func submit(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]string
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func getJob(t *testing.T, ts *httptest.Server, id string) (int, transcribe.Job) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/v1/jobs/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var job transcribe.Job
	json.NewDecoder(resp.Body).Decode(&job)
	return resp.StatusCode, job
}

func TestSubmitAndPoll(t *testing.T) {
	s, ts := newTestServer(t)

	body, _ := json.Marshal(submitRequest{Path: writeInput(t, s)})
	resp, out := submit(t, ts, string(body))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	id := out["id"]
	if id == "" {
		t.Fatal("missing job id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		code, job := getJob(t, ts, id)
		if code != http.StatusOK {
			t.Fatalf("GET status = %d", code)
		}
		if job.State.Finished() {
			if job.State != transcribe.JobDone || job.Result == nil || job.Result.Text != "ok" {
				t.Errorf("job = %+v", job)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", job.State)
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp2, err := http.Get(ts.URL + "/v1/jobs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var jobs []transcribe.Job
	if err := json.NewDecoder(resp2.Body).Decode(&jobs); err != nil || len(jobs) != 1 {
		t.Errorf("jobs = %v, err = %v", jobs, err)
	}
}

func TestSubmitErrors(t *testing.T) {
	s, ts := newTestServer(t)

	outside, _ := json.Marshal(submitRequest{Path: filepath.Join(filepath.Dir(s.inputRoot), "other.wav")})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing path", `{}`, http.StatusBadRequest},
		{"relative escape", `{"path": "../secret.wav"}`, http.StatusForbidden},
		{"absolute outside input dir", string(outside), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := submit(t, ts, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if out["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestSubmitRequiresJSON(t *testing.T) {
	s, ts := newTestServer(t)

	body, _ := json.Marshal(submitRequest{Path: writeInput(t, s)})
	resp, err := http.Post(ts.URL+"/v1/jobs", "text/plain", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
	if n := len(s.service.Jobs()); n != 0 {
		t.Errorf("expected no jobs, got %d", n)
	}
}

func TestGetUnknownJob(t *testing.T) {
	_, ts := newTestServer(t)

	if code, _ := getJob(t, ts, "missing"); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}

	// run one conversion so the metrics have samples
	body, _ := json.Marshal(submitRequest{Path: writeInput(t, s)})
	_, out := submit(t, ts, string(body))
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, job := getJob(t, ts, out["id"]); job.State.Finished() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(data, []byte("whisperprep_conversions_total")) {
		t.Errorf("metrics output missing conversions counter:\n%s", data)
	}
}

func TestEventStream(t *testing.T) {
	s, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// wait for the handler to register its subscription
	deadline := time.Now().Add(2 * time.Second)
	for s.subscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	body, _ := json.Marshal(submitRequest{Path: writeInput(t, s)})
	_, out := submit(t, ts, string(body))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		var ev transcribe.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Job.ID != out["id"] {
			t.Fatalf("event for unexpected job %s", ev.Job.ID)
		}
		if ev.Job.State == transcribe.JobDone {
			break
		}
	}
}

func TestJobRowsNewestFirst(t *testing.T) {
	now := time.Now()
	rows := jobRows([]transcribe.Job{
		{ID: "old", Submitted: now.Add(-time.Minute), State: transcribe.JobDone},
		{ID: "new", Submitted: now, State: transcribe.JobQueued},
	})

	if len(rows) != 2 || rows[0].ID != "new" || rows[1].State != "done" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestTUIModel(t *testing.T) {
	quit := make(chan struct{}, 1)
	m := tuiModel{startTime: time.Now(), quitChan: quit}

	updated, _ := m.Update(statusMsg(ServerStatus{
		Name: "studio",
		Port: 8927,
		Jobs: []JobInfo{{ID: "0123456789", Input: "/tmp/a.mp3", State: "failed", Error: "boom"}},
	}))
	view := updated.View()
	for _, want := range []string{"studio", "8927", "01234567", "a.mp3", "boom"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	updated, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("expected quit command")
	}
	if !updated.(tuiModel).quitting {
		t.Error("model should be quitting")
	}
	select {
	case <-quit:
	default:
		t.Error("quit not signalled")
	}
}
