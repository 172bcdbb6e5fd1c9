// ABOUTME: Transcription job service with a single worker
// ABOUTME: Converts, loads and transcribes submitted files in order and publishes events
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/whisperprep/pkg/pipeline"
)

var (
	// ErrMissingInput is returned by Submit when no input path is given
	ErrMissingInput = errors.New("input path is required")

	// ErrServiceClosed is returned by Submit after Close
	ErrServiceClosed = errors.New("transcription service closed")

	// ErrQueueFull is returned by Submit when the queue has no room
	ErrQueueFull = errors.New("transcription queue full")
)

// JobState is the lifecycle stage of a job
type JobState string

const (
	JobQueued       JobState = "queued"
	JobConverting   JobState = "converting"
	JobTranscribing JobState = "transcribing"
	JobDone         JobState = "done"
	JobFailed       JobState = "failed"
)

// Finished reports whether the state is terminal
func (s JobState) Finished() bool {
	return s == JobDone || s == JobFailed
}

// Job is a snapshot of one submitted file
type Job struct {
	ID         string           `json:"id"`
	Input      string           `json:"input"`
	State      JobState         `json:"state"`
	Conversion *pipeline.Result `json:"conversion,omitempty"`
	Result     *Result          `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	Submitted  time.Time        `json:"submitted"`
	Finished   time.Time        `json:"finished,omitzero"`
}

// Event is published to subscribers on every job state change
type Event struct {
	Job  Job       `json:"job"`
	Time time.Time `json:"time"`
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Processor *pipeline.Processor
	Engine    Engine

	// WorkDir receives intermediate WAV files (default: os.TempDir())
	WorkDir string
	// KeepWAV leaves intermediate WAV files in WorkDir
	KeepWAV bool
	// QueueSize bounds pending jobs (default: 64)
	QueueSize int
	// ShutdownGrace is how long Close waits for the running job (default: 5s)
	ShutdownGrace time.Duration
}

// Service runs transcription jobs one at a time
type Service struct {
	config ServiceConfig

	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[int]chan Event
	nextSub     int
	closed      bool

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a service and starts its worker
func NewService(config ServiceConfig) (*Service, error) {
	if config.Processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if config.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if config.WorkDir == "" {
		config.WorkDir = os.TempDir()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = 5 * time.Second
	}

	if err := os.MkdirAll(config.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		config:      config,
		jobs:        make(map[string]*Job),
		subscribers: make(map[int]chan Event),
		queue:       make(chan string, config.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go s.worker()
	return s, nil
}

// Submit queues input for transcription and returns the job ID
func (s *Service) Submit(input string) (string, error) {
	if input == "" {
		return "", ErrMissingInput
	}

	job := &Job{
		ID:        uuid.New().String(),
		Input:     input,
		State:     JobQueued,
		Submitted: time.Now(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrServiceClosed
	}
	select {
	case s.queue <- job.ID:
	default:
		s.mu.Unlock()
		return "", ErrQueueFull
	}
	s.jobs[job.ID] = job
	s.publishLocked(job)
	s.mu.Unlock()

	log.Printf("Queued job %s: %s", job.ID, input)
	return job.ID, nil
}

// Job returns a snapshot of the job with the given ID
func (s *Service) Job(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns snapshots of all known jobs
func (s *Service) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

// QueueLength returns the number of jobs waiting for the worker
func (s *Service) QueueLength() int {
	return len(s.queue)
}

// Subscribe returns a channel of job events and a function that ends the subscription.
// Slow subscribers miss events rather than block the worker.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.closed {
		close(ch)
	} else {
		s.subscribers[id] = ch
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
			s.mu.Unlock()
		})
	}
}

// Close stops accepting jobs, waits up to ShutdownGrace for queued work,
// cancels whatever is still running and closes the engine
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(s.config.ShutdownGrace):
		log.Printf("Transcription service did not drain within %v, cancelling", s.config.ShutdownGrace)
		s.cancel()
		<-s.done
	}
	s.cancel()

	s.mu.Lock()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.mu.Unlock()

	return s.config.Engine.Close()
}

func (s *Service) worker() {
	defer close(s.done)

	for id := range s.queue {
		if s.ctx.Err() != nil {
			s.finish(id, nil, s.ctx.Err())
			continue
		}
		result, err := s.run(id)
		s.finish(id, result, err)
	}
}

func (s *Service) run(id string) (*Result, error) {
	job, _ := s.Job(id)
	wavPath := filepath.Join(s.config.WorkDir, id+".wav")

	s.update(id, func(j *Job) { j.State = JobConverting })
	conversion, err := s.config.Processor.ProcessToWAV(s.ctx, job.Input, wavPath)
	if err != nil {
		return nil, err
	}
	if !s.config.KeepWAV {
		defer func() {
			if err := os.Remove(wavPath); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to remove %s: %v", wavPath, err)
			}
		}()
	}

	samples, err := pipeline.LoadSamples(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}

	s.update(id, func(j *Job) {
		j.State = JobTranscribing
		j.Conversion = conversion
	})

	result, err := s.config.Engine.Transcribe(s.ctx, samples)
	if err != nil {
		return nil, fmt.Errorf("engine failed: %w", err)
	}
	return result, nil
}

func (s *Service) finish(id string, result *Result, err error) {
	s.update(id, func(j *Job) {
		j.Finished = time.Now()
		if err != nil {
			j.State = JobFailed
			j.Error = err.Error()
			return
		}
		j.State = JobDone
		j.Result = result
	})

	if err != nil {
		log.Printf("Job %s failed: %v", id, err)
	} else {
		log.Printf("Job %s done: %d characters", id, len(result.Text))
	}
}

func (s *Service) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	fn(job)
	s.publishLocked(job)
}

// publishLocked sends a snapshot to every subscriber. Callers hold s.mu.
func (s *Service) publishLocked(job *Job) {
	ev := Event{Job: *job, Time: time.Now()}
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
