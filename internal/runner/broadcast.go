package runner

import (
	"log/slog"
	"sync"
	"time"
)

// ProgressEvent represents a progress update event
type ProgressEvent struct {
	RunID          string    `json:"runId"`
	State          RunState  `json:"state"`
	Step           int       `json:"step"`
	BestCost       float64   `json:"bestCost"`
	StepsPerSecond float64   `json:"stepsPerSecond"`
	Timestamp      time.Time `json:"timestamp"`
}

// Broadcaster fans progress events out to per-run subscriber channels
type Broadcaster struct {
	mu        sync.RWMutex
	clients   map[string]map[chan ProgressEvent]bool // runID -> set of client channels
	lastEvent map[string]ProgressEvent               // runID -> last event for new clients
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients:   make(map[string]map[chan ProgressEvent]bool),
		lastEvent: make(map[string]ProgressEvent),
	}
}

// Subscribe adds a client to receive events for a run
func (b *Broadcaster) Subscribe(runID string) chan ProgressEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ProgressEvent, 10) // Buffered to prevent blocking

	if b.clients[runID] == nil {
		b.clients[runID] = make(map[chan ProgressEvent]bool)
	}
	b.clients[runID][ch] = true

	// Send last event if available (for late subscribers)
	if lastEvent, ok := b.lastEvent[runID]; ok {
		select {
		case ch <- lastEvent:
		default:
			// Channel full, skip
		}
	}

	slog.Debug("Subscriber added", "run_id", runID, "total_clients", len(b.clients[runID]))
	return ch
}

// Unsubscribe removes a client from receiving events. Unsubscribing the same
// channel twice is a no-op.
func (b *Broadcaster) Unsubscribe(runID string, ch chan ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[runID]
	if !ok || !clients[ch] {
		return
	}

	delete(clients, ch)
	close(ch)
	if len(clients) == 0 {
		delete(b.clients, runID)
	}

	slog.Debug("Subscriber removed", "run_id", runID)
}

// Broadcast sends an event to all subscribed clients for a run
func (b *Broadcaster) Broadcast(event ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Store last event for late subscribers
	b.lastEvent[event.RunID] = event

	clients, ok := b.clients[event.RunID]
	if !ok || len(clients) == 0 {
		return
	}

	for ch := range clients {
		select {
		case ch <- event:
			// Event sent successfully
		default:
			// Channel full, skip this client (prevents blocking)
			slog.Warn("Subscriber channel full, dropping event", "run_id", event.RunID)
		}
	}
}

// CleanupRun removes all clients and cached events for a run
func (b *Broadcaster) CleanupRun(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[runID]; ok {
		for ch := range clients {
			close(ch)
		}
		delete(b.clients, runID)
	}

	delete(b.lastEvent, runID)
	slog.Debug("Cleaned up subscriber resources", "run_id", runID)
}
