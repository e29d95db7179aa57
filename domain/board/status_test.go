package board

import (
	"testing"
	"time"
)

func TestApplyStatusCompletionInvariant(t *testing.T) {
	statuses := []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				task := &Task{Status: from}
				if from == StatusDone {
					earlier := now.Add(-time.Hour)
					task.CompletedAt = &earlier
				}
				before := task.CompletedAt

				prev := task.ApplyStatus(to, now)
				if prev != from {
					t.Errorf("ApplyStatus returned prev %q, want %q", prev, from)
				}
				if task.Status != to {
					t.Errorf("status = %q, want %q", task.Status, to)
				}

				switch {
				case to == StatusDone && from != StatusDone:
					if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
						t.Errorf("entering done: completed_at = %v, want %v", task.CompletedAt, now)
					}
				case to != StatusDone && from == StatusDone:
					if task.CompletedAt != nil {
						t.Errorf("leaving done: completed_at = %v, want nil", task.CompletedAt)
					}
				default:
					if task.CompletedAt != before {
						t.Errorf("neutral transition changed completed_at: %v -> %v", before, task.CompletedAt)
					}
				}
			})
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("cancelled").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if Priority("asap").Valid() {
		t.Error("unknown priority should be invalid")
	}
}
