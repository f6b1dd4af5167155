package eval

import (
	"sync"
	"time"
)

// Trend captures verdict statistics over the most recent window of turns.
type Trend struct {
	Total                int
	Correct              int
	Ambiguous            int
	Incorrect            int
	ConsecutiveIncorrect int
	LastVerdicts         []Verdict
	LastUpdated          time.Time
}

// VerdictRecord stores a single evaluation outcome.
type VerdictRecord struct {
	Timestamp time.Time
	Verdict   Verdict
	Score     float64
}

// TrendManager tracks verdicts per key so the assistant can widen
// retrieval when answers trend incorrect. Keys are typically session IDs;
// the empty key aggregates globally.
type TrendManager struct {
	mu         sync.RWMutex
	history    map[string][]VerdictRecord
	lastAdjust map[string]time.Time
	window     int
	maxPerKey  int
	defaultKey string
}

func NewTrendManager(window int) *TrendManager {
	if window <= 0 {
		window = 5
	}
	return &TrendManager{
		history:    make(map[string][]VerdictRecord),
		lastAdjust: make(map[string]time.Time),
		window:     window,
		maxPerKey:  window * 5,
		defaultKey: "_global",
	}
}

// Record stores a verdict for the given key.
func (m *TrendManager) Record(key string, verdict Verdict, score float64) {
	if key == "" {
		key = m.defaultKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := VerdictRecord{Timestamp: time.Now(), Verdict: verdict, Score: score}
	history := append(m.history[key], rec)
	if len(history) > m.maxPerKey {
		history = history[len(history)-m.maxPerKey:]
	}
	m.history[key] = history
}

// GetTrend computes verdict counts over the last window records for a key.
func (m *TrendManager) GetTrend(key string) Trend {
	if key == "" {
		key = m.defaultKey
	}
	m.mu.RLock()
	history := append([]VerdictRecord(nil), m.history[key]...)
	m.mu.RUnlock()

	if len(history) == 0 {
		return Trend{}
	}
	if len(history) > m.window {
		history = history[len(history)-m.window:]
	}

	trend := Trend{
		Total:        len(history),
		LastVerdicts: make([]Verdict, len(history)),
		LastUpdated:  history[len(history)-1].Timestamp,
	}
	for i, record := range history {
		trend.LastVerdicts[i] = record.Verdict
		switch record.Verdict {
		case VerdictCorrect:
			trend.Correct++
		case VerdictAmbiguous:
			trend.Ambiguous++
		case VerdictIncorrect:
			trend.Incorrect++
		}
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Verdict != VerdictIncorrect {
			break
		}
		trend.ConsecutiveIncorrect++
	}
	return trend
}

// InCooldown returns true if a retrieval adjustment for the key is still
// cooling down.
func (m *TrendManager) InCooldown(key string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return false
	}
	if key == "" {
		key = m.defaultKey
	}
	m.mu.RLock()
	last := m.lastAdjust[key]
	m.mu.RUnlock()

	if last.IsZero() {
		return false
	}
	return time.Since(last) < cooldown
}

// MarkAdjustment notes that a retrieval adjustment has been applied.
func (m *TrendManager) MarkAdjustment(key string) {
	if key == "" {
		key = m.defaultKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastAdjust[key] = time.Now()
}
