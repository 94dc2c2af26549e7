package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientTranscribeSendsMultipart(t *testing.T) {
	var gotSessionID, gotChunkIndex, gotFilename string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		gotSessionID = r.FormValue("session_id")
		gotChunkIndex = r.FormValue("chunk_index")
		if _, hdr, err := r.FormFile("file"); err == nil {
			gotFilename = hdr.Filename
		}

		json.NewEncoder(w).Encode(Result{Text: "hello world", Confidence: 0.95})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Transcribe(context.Background(), Request{
		SessionID:  "sess-1",
		ChunkIndex: 3,
		Start:      180,
		End:        240,
		SampleRate: 16000,
		Audio:      []byte("RIFF fake wav"),
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if result.Text != "hello world" {
		t.Errorf("text = %q", result.Text)
	}
	if gotSessionID != "sess-1" {
		t.Errorf("session_id = %q", gotSessionID)
	}
	if gotChunkIndex != "3" {
		t.Errorf("chunk_index = %q", gotChunkIndex)
	}
	if gotFilename != "sess-1_chunk_0003.wav" {
		t.Errorf("filename = %q", gotFilename)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Result{Text: "third time", Confidence: 0.8})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 3, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Transcribe(context.Background(), Request{ChunkIndex: 0, Audio: []byte("x")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "third time" {
		t.Errorf("text = %q", result.Text)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}

	stats := client.GetStats()
	if stats.TotalRetries != 2 {
		t.Errorf("total_retries = %d", stats.TotalRetries)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unsupported format", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 3, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Transcribe(context.Background(), Request{ChunkIndex: 7, Audio: []byte("x")})
	if err == nil {
		t.Fatal("expected error")
	}

	var tErr *TranscriptionError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TranscriptionError, got %T", err)
	}
	if tErr.ChunkIndex != 7 {
		t.Errorf("chunk index = %d", tErr.ChunkIndex)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt for non-retryable error, got %d", calls.Load())
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}
