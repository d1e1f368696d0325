package sources

import (
	"testing"
	"time"

	"NewsOrchestrator/internal/domain"
)

func newSource(name string, enabled bool) domain.Source {
	return domain.Source{Name: name, Type: "rss", URL: "https://example.org/" + name, Enabled: enabled}
}

func TestAddRejectsDuplicates(t *testing.T) {
	m := NewManager(nil)

	if err := m.Add(newSource("bbc", true)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(newSource("bbc", false)); err == nil {
		t.Fatal("duplicate name must be rejected")
	}
	if err := m.Add(domain.Source{}); err == nil {
		t.Fatal("empty name must be rejected")
	}
}

func TestEnabledSourcesFilters(t *testing.T) {
	m := NewManager(nil)
	for _, src := range []domain.Source{
		newSource("a", true),
		newSource("b", false),
		newSource("c", true),
	} {
		if err := m.Add(src); err != nil {
			t.Fatalf("Add %s: %v", src.Name, err)
		}
	}

	enabled := m.EnabledSources()
	if len(enabled) != 2 || enabled[0].Name != "a" || enabled[1].Name != "c" {
		t.Fatalf("unexpected enabled set: %+v", enabled)
	}

	if !m.SetEnabled("b", true) {
		t.Fatal("SetEnabled must find b")
	}
	if got := len(m.EnabledSources()); got != 3 {
		t.Fatalf("expected 3 enabled after flip, got %d", got)
	}
	if m.SetEnabled("nope", true) {
		t.Fatal("unknown name must report false")
	}
}

func TestAllReturnsCopies(t *testing.T) {
	m := NewManager(nil)
	src := newSource("bbc", true)
	src.CustomConfig = map[string]string{"k": "v"}
	if err := m.Add(src); err != nil {
		t.Fatalf("Add: %v", err)
	}

	snapshot := m.All()
	snapshot[0].Name = "mutated"
	snapshot[0].CustomConfig["k"] = "mutated"

	stored, ok := m.Get("bbc")
	if !ok {
		t.Fatal("source lost")
	}
	if stored.Name != "bbc" || stored.CustomConfig["k"] != "v" {
		t.Fatalf("snapshot mutation leaked into the manager: %+v", stored)
	}
}

func TestSourceStatusCheckedAppliesHealth(t *testing.T) {
	m := NewManager(nil)
	if err := m.Add(newSource("bbc", true)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	details := "feed returned 503 Service Unavailable"
	checkedAt := time.Now().UTC()
	m.SourceStatusChecked(domain.StatusResult{
		SourceName:        "bbc",
		Success:           false,
		Message:           "feed check failed",
		ErrorDetails:      &details,
		CheckedAt:         checkedAt,
		ConsecutiveErrors: 3,
	})

	src, _ := m.Get("bbc")
	if src.Status != domain.StatusError {
		t.Fatalf("expected error status, got %q", src.Status)
	}
	if src.ConsecutiveErrors != 3 {
		t.Fatalf("bookkeeping not applied: %d", src.ConsecutiveErrors)
	}
	if src.LastError == nil || *src.LastError != details {
		t.Fatalf("error details not applied: %v", src.LastError)
	}
	if src.LastCheckedAt == nil || !src.LastCheckedAt.Equal(checkedAt) {
		t.Fatalf("checked-at not applied: %v", src.LastCheckedAt)
	}

	m.SourceStatusChecked(domain.StatusResult{
		SourceName:        "bbc",
		Success:           true,
		Message:           "feed ok (10 items)",
		CheckedAt:         checkedAt.Add(time.Minute),
		ConsecutiveErrors: 0,
	})

	src, _ = m.Get("bbc")
	if src.Status != domain.StatusOK || src.LastError != nil || src.ConsecutiveErrors != 0 {
		t.Fatalf("recovery not applied: %+v", src)
	}

	// Unknown sources are ignored without disturbing known ones.
	m.SourceStatusChecked(domain.StatusResult{SourceName: "ghost", Success: false})
	if _, ok := m.Get("ghost"); ok {
		t.Fatal("results must never create sources")
	}
}
