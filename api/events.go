package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brightpath/brainstorm/internal/chat"
)

// events streams conversation events as Server-Sent Events. The stream stays
// open until the client disconnects, the server shuts down, or the
// conversation is deleted.
//
// Each SSE event's name is the chat event kind; the data is the event
// serialized as JSON.
func (h *conversationHandler) events(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before sending headers: once the client sees the 200 it may
	// trigger mutations and must not miss their events.
	events, cancel := c.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("SSE stream started", "path", r.URL.Path)
	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("SSE client disconnected", "path", r.URL.Path)
			return
		case ev, open := <-events:
			if !open {
				// Conversation closed underneath the stream.
				return
			}
			if err := writeEvent(w, flusher, ev); err != nil {
				h.logger.Debug("SSE write failed", "error", err)
				return
			}
		}
	}
}

// writeEvent frames one chat event in SSE wire format and flushes it.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, ev chat.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
