package eval

import (
	"testing"
	"time"
)

func TestTrendManager_GetTrend(t *testing.T) {
	m := NewTrendManager(5)

	if trend := m.GetTrend("s1"); trend.Total != 0 {
		t.Errorf("empty history should yield empty trend, got %+v", trend)
	}

	m.Record("s1", VerdictCorrect, 0.9)
	m.Record("s1", VerdictAmbiguous, 0.5)
	m.Record("s1", VerdictIncorrect, 0.1)
	m.Record("s1", VerdictIncorrect, 0.2)

	trend := m.GetTrend("s1")
	if trend.Total != 4 {
		t.Errorf("expected 4 records, got %d", trend.Total)
	}
	if trend.Correct != 1 || trend.Ambiguous != 1 || trend.Incorrect != 2 {
		t.Errorf("unexpected counts: %+v", trend)
	}
	if trend.ConsecutiveIncorrect != 2 {
		t.Errorf("expected 2 consecutive incorrect, got %d", trend.ConsecutiveIncorrect)
	}

	// a correct verdict breaks the incorrect run
	m.Record("s1", VerdictCorrect, 0.8)
	if trend := m.GetTrend("s1"); trend.ConsecutiveIncorrect != 0 {
		t.Errorf("expected run reset, got %d", trend.ConsecutiveIncorrect)
	}
}

func TestTrendManager_WindowLimits(t *testing.T) {
	m := NewTrendManager(3)

	for i := 0; i < 10; i++ {
		m.Record("s1", VerdictIncorrect, 0.1)
	}
	m.Record("s1", VerdictCorrect, 0.9)

	trend := m.GetTrend("s1")
	if trend.Total != 3 {
		t.Errorf("trend should cover the window only, got %d", trend.Total)
	}
	if trend.Incorrect != 2 || trend.Correct != 1 {
		t.Errorf("unexpected windowed counts: %+v", trend)
	}
}

func TestTrendManager_KeysAreIsolated(t *testing.T) {
	m := NewTrendManager(5)

	m.Record("s1", VerdictIncorrect, 0.1)
	m.Record("", VerdictCorrect, 0.9)

	if trend := m.GetTrend("s1"); trend.Correct != 0 {
		t.Errorf("global record leaked into s1: %+v", trend)
	}
	if trend := m.GetTrend(""); trend.Total != 1 || trend.Correct != 1 {
		t.Errorf("unexpected global trend: %+v", trend)
	}
}

func TestTrendManager_Cooldown(t *testing.T) {
	m := NewTrendManager(5)

	if m.InCooldown("s1", time.Minute) {
		t.Error("fresh key should not be in cooldown")
	}
	m.MarkAdjustment("s1")
	if !m.InCooldown("s1", time.Minute) {
		t.Error("key should be in cooldown right after an adjustment")
	}
	if m.InCooldown("s1", 0) {
		t.Error("zero cooldown should never report cooling down")
	}
	if m.InCooldown("other", time.Minute) {
		t.Error("cooldown should be per key")
	}
}
