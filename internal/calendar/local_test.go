package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/storage"
)

func TestLocalProvider_BusyRoundtrip(t *testing.T) {
	p := NewLocalProvider(storage.NewMemoryStore())
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	if err := p.AddBusy("u1", "2026-03-02", start, start.Add(time.Hour), "standup"); err != nil {
		t.Fatalf("AddBusy failed: %v", err)
	}

	busy, err := p.ListBusyIntervals(context.Background(), "u1", "2026-03-02")
	if err != nil {
		t.Fatalf("ListBusyIntervals failed: %v", err)
	}
	if len(busy) != 1 || !busy[0].Start.Equal(start) || busy[0].Source != "standup" {
		t.Errorf("unexpected busy intervals: %+v", busy)
	}
}

func TestLocalProvider_AddBusyRejectsInvertedInterval(t *testing.T) {
	p := NewLocalProvider(storage.NewMemoryStore())
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	if err := p.AddBusy("u1", "2026-03-02", start, start, "x"); err == nil {
		t.Error("expected error for zero-length interval")
	}
	if err := p.AddBusy("u1", "2026-03-02", start, start.Add(-time.Hour), "x"); err == nil {
		t.Error("expected error for inverted interval")
	}
}

func TestLocalProvider_EventLifecycle(t *testing.T) {
	p := NewLocalProvider(storage.NewMemoryStore())
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	id, err := p.CreateEvent(context.Background(), "u1", Event{
		Summary: "Focus: report",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty event id")
	}

	if err := p.DeleteEvent(context.Background(), "u1", id); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if err := p.DeleteEvent(context.Background(), "u1", id); err == nil {
		t.Error("expected error deleting the event twice")
	}
}

func TestLocalProvider_CancelledContext(t *testing.T) {
	p := NewLocalProvider(storage.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.ListBusyIntervals(ctx, "u1", "2026-03-02"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if _, err := p.CreateEvent(ctx, "u1", Event{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err := p.DeleteEvent(ctx, "u1", "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
