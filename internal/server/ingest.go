package server

import (
	"io"
	"net/http"
)

// maxIngestBytes caps one ingest request. At 16kHz mono PCM16 this is
// well over a minute of audio per request.
const maxIngestBytes = 8 << 20

// handleIngestAudio appends raw little-endian PCM16 audio to a recording
// session. The body is the bare sample stream; chunking happens server-side
// on the fixed chunk boundary.
func (h *HTTPServer) handleIngestAudio(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body := http.MaxBytesReader(w, r.Body, maxIngestBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "audio payload too large")
		return
	}
	if len(data) == 0 {
		h.writeError(w, http.StatusBadRequest, "empty audio payload")
		return
	}
	if len(data)%2 != 0 {
		h.writeError(w, http.StatusBadRequest, "audio payload is not whole PCM16 samples")
		return
	}

	if err := h.manager.IngestAudio(id, data); err != nil {
		h.writeOperationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": id,
		"samples":    len(data) / 2,
	})
}
