package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// subscriberBuffer is the number of events a slow SSE client may lag behind
// before events are dropped for it.
const subscriberBuffer = 32

// StreamManager fans run events out to SSE subscribers, keyed by run ID.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Subscribe registers a listener for runID. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(runID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[runID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, runID)
				}
			}
		})
	}
}

// Broadcast sends msg to every subscriber of runID without blocking.
func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[runID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping event", "run_id", runID)
		}
	}
}

// Subscribers reports how many listeners runID has.
func (sm *StreamManager) Subscribers(runID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[runID])
}

// Writer returns an io.Writer that broadcasts every newline-terminated line
// written to it as one event for runID.
func (sm *StreamManager) Writer(runID string) io.Writer {
	return &broadcastWriter{streams: sm, runID: runID}
}

type broadcastWriter struct {
	streams *StreamManager
	runID   string
	buf     bytes.Buffer
}

func (b *broadcastWriter) Write(p []byte) (int, error) {
	b.buf.Write(p)
	for {
		line, err := b.buf.ReadBytes('\n')
		if err != nil {
			// Keep the partial line for the next write.
			b.buf.Reset()
			b.buf.Write(line)
			break
		}
		b.streams.Broadcast(b.runID, string(bytes.TrimRight(line, "\n")))
	}
	return len(p), nil
}

// SubscribeEvents handles GET /runs/{runID}/events. It relays the NDJSON
// events of a live run as Server-Sent Events and returns once the result
// event was sent or the client went away.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	runID := chi.URLParam(r, "runID")
	s.Logger.Info("SSE: Subscribing to run events", "run_id", runID)

	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
			if isResultEvent(msg) {
				return
			}
		}
	}
}

func isResultEvent(msg string) bool {
	return strings.HasPrefix(msg, `{"type":"result"`)
}
