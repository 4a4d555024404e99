package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization/annealing"
)

// ProgressEvent is one update pushed to stream subscribers.
type ProgressEvent struct {
	RunID       string             `json:"run_id"`
	State       optimization.State `json:"state"`
	Iteration   int                `json:"iteration"`
	Fitness     float64            `json:"fitness"`
	Temperature float64            `json:"temperature"`
	Accepted    bool               `json:"accepted"`
	Timestamp   time.Time          `json:"timestamp"`
}

// EventBroadcaster fans progress events out to SSE subscribers per run.
type EventBroadcaster struct {
	logger Logger

	mu        sync.Mutex
	clients   map[string]map[chan ProgressEvent]struct{}
	lastEvent map[string]ProgressEvent
}

// NewEventBroadcaster creates an empty broadcaster.
func NewEventBroadcaster(logger Logger) *EventBroadcaster {
	return &EventBroadcaster{
		logger:    logger,
		clients:   make(map[string]map[chan ProgressEvent]struct{}),
		lastEvent: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a client for runID. The last event, if any, is delivered
// immediately so late subscribers see the current position.
func (eb *EventBroadcaster) Subscribe(runID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, 16)
	if eb.clients[runID] == nil {
		eb.clients[runID] = make(map[chan ProgressEvent]struct{})
	}
	eb.clients[runID][ch] = struct{}{}

	if last, ok := eb.lastEvent[runID]; ok {
		ch <- last
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (eb *EventBroadcaster) Unsubscribe(runID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	clients, ok := eb.clients[runID]
	if !ok {
		return
	}
	if _, ok := clients[ch]; !ok {
		return
	}
	delete(clients, ch)
	close(ch)
	if len(clients) == 0 {
		delete(eb.clients, runID)
	}
}

// Broadcast delivers event to every subscriber of its run. A subscriber whose
// buffer is full misses the event; the search never waits on a reader.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.lastEvent[event.RunID] = event
	for ch := range eb.clients[event.RunID] {
		select {
		case ch <- event:
		default:
			eb.logger.Warn("SSE channel full, skipping event", map[string]interface{}{
				"run_id":    event.RunID,
				"iteration": event.Iteration,
			})
		}
	}
}

// Close ends every stream of runID and drops the cached event.
func (eb *EventBroadcaster) Close(runID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.clients[runID] {
		close(ch)
	}
	delete(eb.clients, runID)
	delete(eb.lastEvent, runID)
}

// handleEvents streams progress of a run as Server-Sent Events until the run
// finishes or the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.lookup(id)
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.events.Subscribe(id)
	defer s.events.Unsubscribe(id, events)

	// A run that already finished has nothing more to publish.
	snap := entry.run.Snapshot()
	if snap.State.Terminal() {
		if err := writeSSEEvent(w, "done", progressFromSnapshot(id, snap)); err != nil {
			s.logger.Error("Failed to write SSE event", map[string]interface{}{"error": err.Error()})
		}
		flusher.Flush()
		return
	}
	flusher.Flush()

	ping := time.NewTicker(s.streamPing)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-entry.done:
			s.drainEvents(w, events)
			if err := writeSSEEvent(w, "done", progressFromSnapshot(id, entry.run.Snapshot())); err != nil {
				s.logger.Error("Failed to write SSE event", map[string]interface{}{"error": err.Error()})
			}
			flusher.Flush()
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, "progress", event); err != nil {
				s.logger.Error("Failed to write SSE event", map[string]interface{}{"error": err.Error()})
				return
			}
			flusher.Flush()
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// drainEvents forwards events still buffered when the run finished.
func (s *Server) drainEvents(w http.ResponseWriter, events chan ProgressEvent) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, "progress", event); err != nil {
				return
			}
		default:
			return
		}
	}
}

func progressFromSnapshot(id string, snap annealing.Snapshot) ProgressEvent {
	ev := ProgressEvent{
		RunID:       id,
		State:       snap.State,
		Iteration:   snap.Iteration,
		Temperature: snap.Temperature,
		Timestamp:   time.Now(),
	}
	if n := len(snap.Metrics); n > 0 {
		ev.Fitness = snap.Metrics[n-1].Fitness
	}
	return ev
}

// writeSSEEvent writes one named event in text/event-stream framing.
func writeSSEEvent(w http.ResponseWriter, name string, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
