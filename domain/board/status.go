package board

import "time"

// Status is a task's workflow state. Every transition between states is
// legal; only entering and leaving done has side effects.
type Status string

// Task statuses.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Priority orders tasks by urgency.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ApplyStatus moves the task to next and maintains the completion timestamp:
// set when entering done, cleared when leaving done, untouched otherwise.
// It returns the previous status.
func (t *Task) ApplyStatus(next Status, now time.Time) Status {
	prev := t.Status
	t.Status = next
	switch {
	case next == StatusDone && prev != StatusDone:
		ts := now.UTC()
		t.CompletedAt = &ts
	case next != StatusDone && prev == StatusDone:
		t.CompletedAt = nil
	}
	return prev
}

// Action tags an activity log entry.
type Action string

// Activity actions.
const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionDeleted       Action = "deleted"
	ActionCompleted     Action = "completed"
	ActionCommented     Action = "commented"
	ActionAssigned      Action = "assigned"
	ActionStatusChanged Action = "status_changed"
	ActionMemberAdded   Action = "member_added"
	ActionMemberRemoved Action = "member_removed"
)
