// ABOUTME: HTTP engine for whisper.cpp compatible inference servers
// ABOUTME: Uploads samples as a 16 kHz WAV with retry and exponential backoff
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/whisperprep/internal/version"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/wav"
)

// HTTPConfig contains HTTP engine configuration
type HTTPConfig struct {
	// Endpoint is the server base URL, e.g. http://127.0.0.1:8080
	Endpoint string
	// Path of the inference handler (default: /inference)
	Path         string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Language     string
	Temperature  float32
	// ResponseFormat is json or verbose_json (default: json)
	ResponseFormat string
}

// HTTPEngine sends audio to a whisper.cpp style /inference endpoint
type HTTPEngine struct {
	config     HTTPConfig
	url        string
	httpClient *http.Client
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.code, e.body)
}

type inferenceResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Error string `json:"error"`
}

// NewHTTPEngine creates an HTTP engine, applying defaults for unset fields
func NewHTTPEngine(config HTTPConfig) (*HTTPEngine, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.Path == "" {
		config.Path = "/inference"
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}
	if config.ResponseFormat == "" {
		config.ResponseFormat = "json"
	}

	return &HTTPEngine{
		config: config,
		url:    strings.TrimRight(config.Endpoint, "/") + config.Path,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Transcribe uploads samples and returns the recognized text
func (e *HTTPEngine) Transcribe(ctx context.Context, samples []float32) (*Result, error) {
	payload, err := encodeWAV(samples)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * e.config.RetryBackoff
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := e.doRequest(ctx, payload)
		if err == nil {
			result.Duration = time.Duration(len(samples)) * time.Second / audio.TargetSampleRate
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
	}

	return nil, fmt.Errorf("transcription failed after %d attempts: %w", e.config.MaxRetries+1, lastErr)
}

func (e *HTTPEngine) doRequest(ctx context.Context, payload []byte) (*Result, error) {
	body, contentType, err := e.createMultipartRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("inference error: %s", parsed.Error)
	}

	result := &Result{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
	}
	for _, s := range parsed.Segments {
		result.Segments = append(result.Segments, Segment{
			Start: seconds(s.Start),
			End:   seconds(s.End),
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return result, nil
}

func (e *HTTPEngine) createMultipartRequest(payload []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(payload); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"response_format": e.config.ResponseFormat,
		"temperature":     strconv.FormatFloat(float64(e.config.Temperature), 'f', 2, 32),
	}
	if e.config.Language != "" {
		fields["language"] = e.config.Language
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// Close releases idle connections
func (e *HTTPEngine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// encodeWAV renders samples as a canonical 16 kHz WAV file image
func encodeWAV(samples []float32) ([]byte, error) {
	dir, err := os.MkdirTemp("", "whisperprep-upload-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = audio.Float32ToInt16(s)
	}

	path := filepath.Join(dir, "upload.wav")
	if err := wav.WriteFile(path, pcm, audio.TargetSampleRate); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// isRetryable reports whether a request error is worth another attempt
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
