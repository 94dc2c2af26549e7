package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/boris-gans/note-gen/internal/transcript"
)

// TranscriptionError indicates a capability failure for one chunk.
// Retryable errors are retried by the client with exponential backoff;
// once retries are exhausted the queue marks the chunk as a gap.
type TranscriptionError struct {
	ChunkIndex int
	Attempts   int
	Err        error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription of chunk %d failed after %d attempts: %v", e.ChunkIndex, e.Attempts, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// Request carries one finalized audio segment to the transcription capability
type Request struct {
	SessionID  string
	ChunkIndex int
	Start      float64
	End        float64
	SampleRate int
	Audio      []byte // WAV-encoded segment
}

// Result is the transcription capability's response for one chunk
type Result struct {
	Text       string                     `json:"text"`
	Confidence float64                    `json:"confidence"`
	Language   string                     `json:"language,omitempty"`
	Words      []transcript.WordTimestamp `json:"words,omitempty"`
}

// Transcriber is the external transcription capability boundary:
// audio segment in, text plus optional word timestamps out. Implementations
// must be idempotent-safe to retry.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Config contains transcription client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	Language      string
	Model         string
}

// Client is the HTTP transcription client. Concurrency across sessions is
// bounded by a semaphore; within a session calls arrive sequentially from
// the queue worker.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}

	mu              sync.Mutex
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
	TotalRetries    uint64  `json:"total_retries"`
}

// NewClient creates a transcription HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Transcribe sends an audio segment for transcription, retrying retryable
// failures with exponential backoff up to MaxRetries
func (c *Client) Transcribe(ctx context.Context, req Request) (*Result, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	c.totalRequests++
	c.mu.Unlock()

	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.mu.Lock()
			c.totalRetries++
			c.mu.Unlock()

			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.doRequest(ctx, req)
		if err == nil {
			c.mu.Lock()
			c.successRequests++
			c.mu.Unlock()
			return result, nil
		}

		lastErr = err

		if !isRetryable(err) {
			break
		}
	}

	c.mu.Lock()
	c.failedRequests++
	c.mu.Unlock()

	return nil, &TranscriptionError{
		ChunkIndex: req.ChunkIndex,
		Attempts:   c.config.MaxRetries + 1,
		Err:        lastErr,
	}
}

// doRequest performs a single multipart HTTP request to the capability
func (c *Client) doRequest(ctx context.Context, req Request) (*Result, error) {
	body, contentType, err := c.buildMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return &result, nil
}

// buildMultipart creates the multipart/form-data request body: the WAV file
// plus chunk metadata fields
func (c *Client) buildMultipart(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := fmt.Sprintf("%s_chunk_%04d.wav", req.SessionID, req.ChunkIndex)
	fileWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(req.Audio); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"session_id":  req.SessionID,
		"chunk_index": fmt.Sprintf("%d", req.ChunkIndex),
		"start_time":  fmt.Sprintf("%.3f", req.Start),
		"end_time":    fmt.Sprintf("%.3f", req.End),
		"sample_rate": fmt.Sprintf("%d", req.SampleRate),
	}
	if c.config.Language != "" {
		fields["language"] = c.config.Language
	}
	if c.config.Model != "" {
		fields["model"] = c.config.Model
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

// isRetryable reports whether an error is worth retrying: network failures,
// timeouts and 5xx/429 responses are; other HTTP errors are not
func isRetryable(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "HTTP error 4") && !strings.Contains(msg, "HTTP error 429") {
		return false
	}
	return true
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate := float64(0)
	if c.totalRequests > 0 {
		rate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     rate,
		TotalRetries:    c.totalRetries,
	}
}
