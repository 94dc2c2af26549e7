// Command mockstt is a development stand-in for the transcription capability.
// It accepts the service's multipart chunk uploads and returns canned lecture
// text so the full pipeline can run without a real speech-to-text backend.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

var lectureLines = []string{
	"Today we are going to talk about recursion and why it shows up everywhere in computer science.",
	"A recursive function needs a base case, otherwise it will call itself forever and blow the stack.",
	"Let's trace through an example on the board so you can see each stack frame being pushed.",
	"When you get a stack trace, read it from the bottom up to find where the first call originated.",
	"A common pitfall is mutating shared state between recursive calls, which makes debugging painful.",
	"Any questions before we move on to memoization and how it turns exponential blowup into linear time?",
}

type transcriptionResponse struct {
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
	Language    string    `json:"language"`
	ProcessedAt time.Time `json:"processed_at"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	sessionID := r.FormValue("session_id")
	chunkIndex := r.FormValue("chunk_index")
	startTime := r.FormValue("start_time")
	endTime := r.FormValue("end_time")
	language := r.FormValue("language")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("chunk received: session=%s index=%s span=%ss-%ss file=%s size=%d",
		sessionID, chunkIndex, startTime, endTime, header.Filename, len(audioData))

	// Simulate processing time.
	time.Sleep(150 * time.Millisecond)

	idx, _ := strconv.Atoi(chunkIndex)
	if language == "" {
		language = "en"
	}

	response := transcriptionResponse{
		Text:        lectureLines[idx%len(lectureLines)],
		Confidence:  0.93,
		Language:    language,
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func main() {
	port := flag.Int("port", 9000, "Port to listen on")
	flag.Parse()

	http.HandleFunc("/transcribe", transcribeHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock transcription server starting on %s", addr)
	log.Printf("Endpoint: http://localhost%s/transcribe", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
