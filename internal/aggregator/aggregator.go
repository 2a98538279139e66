package aggregator

import (
	"encoding/json"
	"sync"
	"time"

	"telemetry-be/internal/domain"
)

// Aggregator is the process-lifetime, in-memory view of reported telemetry:
// per-client request, error and event sequences plus the latest user record
// per client. It starts empty on every boot and is never persisted or
// reloaded; on-disk state diverges from it across restarts.
//
// All methods are safe for concurrent use. Read accessors return defensive
// copies; the internal maps are never exposed.
type Aggregator struct {
	mu        sync.RWMutex
	requests  map[string][]json.RawMessage
	errors    map[string][]json.RawMessage
	events    map[string][]json.RawMessage
	users     map[string]domain.UserRecord
	startedAt time.Time
}

// New creates an empty aggregator
func New() *Aggregator {
	return &Aggregator{
		requests:  make(map[string][]json.RawMessage),
		errors:    make(map[string][]json.RawMessage),
		events:    make(map[string][]json.RawMessage),
		users:     make(map[string]domain.UserRecord),
		startedAt: time.Now(),
	}
}

// AppendRequest appends one raw request payload for a client
func (a *Aggregator) AppendRequest(clientID string, payload json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests[clientID] = append(a.requests[clientID], payload)
}

// AppendRequests appends a batch of raw request payloads for a client
func (a *Aggregator) AppendRequests(clientID string, payloads []json.RawMessage) {
	if len(payloads) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests[clientID] = append(a.requests[clientID], payloads...)
}

// AppendError appends one raw error payload for a client
func (a *Aggregator) AppendError(clientID string, payload json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errors[clientID] = append(a.errors[clientID], payload)
}

// AppendErrors appends a batch of raw error payloads for a client
func (a *Aggregator) AppendErrors(clientID string, payloads []json.RawMessage) {
	if len(payloads) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.errors[clientID] = append(a.errors[clientID], payloads...)
}

// AppendEvent appends one raw event payload for a client
func (a *Aggregator) AppendEvent(clientID string, payload json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events[clientID] = append(a.events[clientID], payload)
}

// SetUser stores the latest user record for a client, replacing any
// previous one
func (a *Aggregator) SetUser(clientID string, user domain.UserRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.users[clientID] = user
}

// RequestsFor returns a copy of one client's request sequence
func (a *Aggregator) RequestsFor(clientID string) []json.RawMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return copySlice(a.requests[clientID])
}

// ErrorsFor returns a copy of one client's error sequence
func (a *Aggregator) ErrorsFor(clientID string) []json.RawMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return copySlice(a.errors[clientID])
}

// Requests returns a snapshot of all request sequences
func (a *Aggregator) Requests() map[string][]json.RawMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return copyMap(a.requests)
}

// Errors returns a snapshot of all error sequences
func (a *Aggregator) Errors() map[string][]json.RawMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return copyMap(a.errors)
}

// Events returns a snapshot of all event sequences
func (a *Aggregator) Events() map[string][]json.RawMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return copyMap(a.events)
}

// Users returns a snapshot of all user records
func (a *Aggregator) Users() map[string]domain.UserRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snapshot := make(map[string]domain.UserRecord, len(a.users))
	for id, user := range a.users {
		snapshot[id] = user
	}
	return snapshot
}

// TotalRequests sums the lengths of all request sequences
func (a *Aggregator) TotalRequests() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := 0
	for _, seq := range a.requests {
		total += len(seq)
	}
	return total
}

// TotalErrors sums the lengths of all error sequences
func (a *Aggregator) TotalErrors() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := 0
	for _, seq := range a.errors {
		total += len(seq)
	}
	return total
}

// Uptime reports the wall-clock time since the aggregator was created
func (a *Aggregator) Uptime() time.Duration {
	return time.Since(a.startedAt)
}

func copySlice(seq []json.RawMessage) []json.RawMessage {
	if seq == nil {
		return nil
	}
	out := make([]json.RawMessage, len(seq))
	copy(out, seq)
	return out
}

func copyMap(m map[string][]json.RawMessage) map[string][]json.RawMessage {
	snapshot := make(map[string][]json.RawMessage, len(m))
	for id, seq := range m {
		snapshot[id] = copySlice(seq)
	}
	return snapshot
}
