// Package session tracks per-session tool-invocation sequences and
// the global (from_tool, to_tool) transition frequencies derived from
// them, used to predict what tool a client is likely to call next.
//
// DESIGN: session IDs are bound to the Mcp-Session-Id header the same
// way the teacher's middleware.go binds a generated ID to
// X-Request-ID - generated with google/uuid when absent, echoed back
// otherwise.
package session

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/compresr/mcp-gateway/internal/persist"
)

// transitionKey identifies one observed (from, to) tool pair.
type transitionKey struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// transitionRecord is the JSON-persisted shape for one transition's count.
type transitionRecord struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int64  `json:"count"`
}

// Prediction is one candidate "next tool" with its observed confidence.
type Prediction struct {
	Tool       string  `json:"tool"`
	Confidence float64 `json:"confidence"`
	Observations int64 `json:"observations"`
}

// Tracker records per-session last-called tool and aggregates
// transition frequency across all sessions.
type Tracker struct {
	mu sync.Mutex

	lastTool    map[string]string // session ID -> last tool invoked
	transitions map[transitionKey]int64
	fromTotals  map[string]int64

	statePath string
}

// NewID generates a fresh session ID.
func NewID() string { return uuid.NewString() }

// New constructs a Tracker whose transition counts persist to
// <stateDir>/transitions.json.
func New(stateDir string) *Tracker {
	return &Tracker{
		lastTool:    make(map[string]string),
		transitions: make(map[transitionKey]int64),
		fromTotals:  make(map[string]int64),
		statePath:   filepath.Join(stateDir, "transitions.json"),
	}
}

// Load merges persisted transition counts into the in-memory tracker.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var records []transitionRecord
	if err := persist.LoadJSON(t.statePath, &records); err != nil {
		return err
	}
	for _, r := range records {
		k := transitionKey{From: r.From, To: r.To}
		t.transitions[k] += r.Count
		t.fromTotals[r.From] += r.Count
	}
	return nil
}

// Save persists the current transition counts atomically.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	records := make([]transitionRecord, 0, len(t.transitions))
	for k, count := range t.transitions {
		records = append(records, transitionRecord{From: k.From, To: k.To, Count: count})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].From != records[j].From {
			return records[i].From < records[j].From
		}
		return records[i].To < records[j].To
	})
	return persist.SaveJSON(t.statePath, records)
}

// RecordInvocation records that sessionID just invoked tool, updating
// the (previous-tool, tool) transition count if a previous tool is on
// record for this session. Returns the predicted next tools for tool,
// so callers can attach a predicted_next hint to the response without
// a second lookup.
func (t *Tracker) RecordInvocation(sessionID, tool string, minConfidence float64, minObservations int64, limit int) []Prediction {
	t.mu.Lock()
	prev, hadPrev := t.lastTool[sessionID]
	t.lastTool[sessionID] = tool
	if hadPrev {
		k := transitionKey{From: prev, To: tool}
		t.transitions[k]++
		t.fromTotals[prev]++
	}
	t.mu.Unlock()

	return t.PredictNext(tool, minConfidence, minObservations, limit)
}

// PredictNext returns up to limit candidate next tools observed after
// tool, each meeting minConfidence and minObservations, ranked by
// confidence descending.
func (t *Tracker) PredictNext(tool string, minConfidence float64, minObservations int64, limit int) []Prediction {
	if minConfidence <= 0 {
		minConfidence = 0.30
	}
	if minObservations <= 0 {
		minObservations = 3
	}
	if limit <= 0 {
		limit = 5
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	total := t.fromTotals[tool]
	if total == 0 {
		return nil
	}

	var out []Prediction
	for k, count := range t.transitions {
		if k.From != tool {
			continue
		}
		if count < minObservations {
			continue
		}
		conf := float64(count) / float64(total)
		if conf < minConfidence {
			continue
		}
		out = append(out, Prediction{Tool: k.To, Confidence: conf, Observations: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Tool < out[j].Tool
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// EndSession forgets a session's last-tool state, freeing memory once
// a client disconnects.
func (t *Tracker) EndSession(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastTool, sessionID)
}
