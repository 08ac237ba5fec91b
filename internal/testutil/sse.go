package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// SSEEvent is a parsed Server-Sent Event.
type SSEEvent struct {
	Type string // event: value
	Data string // data: value (multi-line joined with \n)
}

// ParseSSEEvents parses an SSE body into structured events. Multiple data:
// lines are joined with a newline, an empty line terminates the event, and
// comment lines starting with ":" are ignored. Events without an explicit
// type default to "message" per the SSE spec.
func ParseSSEEvents(t *testing.T, body string) []SSEEvent {
	t.Helper()

	var (
		events    []SSEEvent
		eventType string
		dataLines []string
	)

	flush := func() {
		if eventType == "" && len(dataLines) == 0 {
			return
		}
		typ := eventType
		if typ == "" {
			typ = "message"
		}
		events = append(events, SSEEvent{Type: typ, Data: strings.Join(dataLines, "\n")})
		eventType = ""
		dataLines = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning SSE body: %v", err)
	}
	flush()

	return events
}
