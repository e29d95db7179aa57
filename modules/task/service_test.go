package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/activity"
	"github.com/example/taskboard/modules/project"
	"github.com/example/taskboard/modules/tag"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&board.User{}, &board.Project{}, &board.ProjectMember{},
		&board.Task{}, &board.Tag{}, &board.TaskTag{},
		&board.Comment{}, &board.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	created   []events.TaskCreatedEvent
	updated   []events.TaskUpdatedEvent
	status    []events.TaskStatusChangedEvent
	assigned  []events.TaskAssignedEvent
	completed []events.TaskCompletedEvent
	deleted   []events.TaskDeletedEvent
	comments  []events.CommentAddedEvent
}

func (r *recordingNotifier) TaskCreated(ev events.TaskCreatedEvent)   { r.created = append(r.created, ev) }
func (r *recordingNotifier) TaskUpdated(ev events.TaskUpdatedEvent)   { r.updated = append(r.updated, ev) }
func (r *recordingNotifier) TaskDeleted(ev events.TaskDeletedEvent)   { r.deleted = append(r.deleted, ev) }
func (r *recordingNotifier) TaskStatusChanged(ev events.TaskStatusChangedEvent) {
	r.status = append(r.status, ev)
}
func (r *recordingNotifier) TaskAssigned(ev events.TaskAssignedEvent) {
	r.assigned = append(r.assigned, ev)
}
func (r *recordingNotifier) TaskCompleted(ev events.TaskCompletedEvent) {
	r.completed = append(r.completed, ev)
}
func (r *recordingNotifier) CommentAdded(ev events.CommentAddedEvent) {
	r.comments = append(r.comments, ev)
}

type fixture struct {
	svc      *Service
	tags     *tag.Service
	db       *gorm.DB
	notify   *recordingNotifier
	owner    string
	member   string
	viewer   string
	outsider string
	project  *board.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		db:       db,
		notify:   &recordingNotifier{},
		owner:    uuid.New().String(),
		member:   uuid.New().String(),
		viewer:   uuid.New().String(),
		outsider: uuid.New().String(),
	}

	f.project = &board.Project{ID: uuid.New().String(), Name: "P", OwnerID: f.owner}
	if err := db.Create(f.project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	memberships := []*board.ProjectMember{
		{ProjectID: f.project.ID, UserID: f.member, Role: board.RoleMember},
		{ProjectID: f.project.ID, UserID: f.viewer, Role: board.RoleViewer},
	}
	for _, m := range memberships {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("failed to create membership: %v", err)
		}
	}

	access := project.NewAccessService(project.NewRepository(db), nil)
	f.tags = tag.NewService(tag.NewRepository(db), access)
	f.svc = NewService(NewRepository(db), access, f.tags, activity.NewRecorder(), activity.NewRepository(db), f.notify)
	return f
}

func (f *fixture) activityCount(t *testing.T, action board.Action) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(&board.ActivityLog{})
	if action != "" {
		q = q.Where("action = ?", action)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("failed to count activity: %v", err)
	}
	return n
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.Status != board.StatusTodo || created.Priority != board.PriorityMedium {
		t.Errorf("defaults = %q/%q, want todo/medium", created.Status, created.Priority)
	}
	if created.CreatorID != f.member {
		t.Errorf("creator = %q, want %q", created.CreatorID, f.member)
	}
	if n := f.activityCount(t, board.ActionCreated); n != 1 {
		t.Errorf("created entries = %d, want 1", n)
	}
	if len(f.notify.created) != 1 {
		t.Errorf("created events = %d, want 1", len(f.notify.created))
	}

	if _, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{}); err == nil {
		t.Error("Create() without title should fail")
	}
	if _, err := f.svc.Create(ctx, f.viewer, f.project.ID, CreateParams{Title: "T"}); !errors.Is(err, board.ErrAccessDenied) {
		t.Errorf("viewer create = %v, want ErrAccessDenied", err)
	}
}

func TestCreateTaskDeniedLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.outsider, f.project.ID, CreateParams{Title: "Sneaky"})
	if !errors.Is(err, board.ErrAccessDenied) {
		t.Fatalf("outsider create = %v, want ErrAccessDenied", err)
	}

	var tasks int64
	f.db.Model(&board.Task{}).Count(&tasks)
	if tasks != 0 {
		t.Errorf("task rows = %d, want 0", tasks)
	}
	if n := f.activityCount(t, ""); n != 0 {
		t.Errorf("activity entries = %d, want 0", n)
	}
	if len(f.notify.created) != 0 {
		t.Errorf("events emitted on denied call")
	}
}

func TestCreateTaskAssigneeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Owner and roster members are assignable.
	for _, assignee := range []string{f.owner, f.member, f.viewer} {
		if _, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T", AssigneeID: &assignee}); err != nil {
			t.Errorf("assignee %s rejected: %v", assignee, err)
		}
	}

	_, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T", AssigneeID: &f.outsider})
	if !errors.Is(err, board.ErrInvalidAssignee) {
		t.Errorf("outsider assignee = %v, want ErrInvalidAssignee", err)
	}
}

func TestStatusFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	moved, err := f.svc.UpdateStatus(ctx, f.member, created.ID, board.StatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if moved.CompletedAt != nil {
		t.Error("completed_at should be nil outside done")
	}

	done, err := f.svc.UpdateStatus(ctx, f.member, created.ID, board.StatusDone)
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at should be set on done")
	}
	if len(f.notify.completed) != 1 {
		t.Errorf("completed events = %d, want 1", len(f.notify.completed))
	}

	reopened, err := f.svc.UpdateStatus(ctx, f.member, created.ID, board.StatusReview)
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Error("completed_at should clear when leaving done")
	}

	if n := f.activityCount(t, board.ActionStatusChanged); n != 3 {
		t.Errorf("status_changed entries = %d, want 3", n)
	}
	if len(f.notify.status) != 3 {
		t.Errorf("status events = %d, want 3", len(f.notify.status))
	}

	// Same-status call is a no-op.
	if _, err := f.svc.UpdateStatus(ctx, f.member, created.ID, board.StatusReview); err != nil {
		t.Fatalf("no-op UpdateStatus() error: %v", err)
	}
	if len(f.notify.status) != 3 {
		t.Errorf("no-op transition emitted an event")
	}
}

func TestAssignRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	assigned, err := f.svc.Assign(ctx, f.member, created.ID, &f.viewer)
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if assigned.AssigneeID == nil || *assigned.AssigneeID != f.viewer {
		t.Errorf("assignee = %v, want %s", assigned.AssigneeID, f.viewer)
	}
	if len(f.notify.assigned) != 1 || f.notify.assigned[0].AssigneeID != f.viewer {
		t.Errorf("assigned events = %+v, want one for %s", f.notify.assigned, f.viewer)
	}

	// A non-member cannot be assigned, and a failed call changes nothing.
	if _, err := f.svc.Assign(ctx, f.member, created.ID, &f.outsider); !errors.Is(err, board.ErrInvalidAssignee) {
		t.Errorf("outsider assign = %v, want ErrInvalidAssignee", err)
	}
	reread, _ := f.svc.Get(ctx, f.member, created.ID)
	if reread.AssigneeID == nil || *reread.AssigneeID != f.viewer {
		t.Errorf("failed assign changed assignee to %v", reread.AssigneeID)
	}

	// nil clears.
	cleared, err := f.svc.Assign(ctx, f.member, created.ID, nil)
	if err != nil {
		t.Fatalf("clearing Assign() error: %v", err)
	}
	if cleared.AssigneeID != nil {
		t.Errorf("assignee = %v, want nil", cleared.AssigneeID)
	}
	if n := f.activityCount(t, board.ActionAssigned); n != 2 {
		t.Errorf("assigned entries = %d, want 2", n)
	}
}

func TestUpdateDiff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "Old title"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	title := "New title"
	priority := board.PriorityUrgent
	updated, err := f.svc.Update(ctx, f.member, created.ID, UpdateParams{
		Title:    &title,
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Title != title || updated.Priority != priority {
		t.Errorf("update not applied: %+v", updated)
	}
	if len(f.notify.updated) != 1 {
		t.Fatalf("updated events = %d, want 1", len(f.notify.updated))
	}
	changes := f.notify.updated[0].Changes
	if changes["title"].Old != "Old title" || changes["title"].New != "New title" {
		t.Errorf("title change = %+v", changes["title"])
	}
	if _, ok := changes["priority"]; !ok {
		t.Error("priority change missing from diff")
	}
	if n := f.activityCount(t, board.ActionUpdated); n != 1 {
		t.Errorf("updated entries = %d, want 1", n)
	}

	// An empty diff writes nothing and emits nothing.
	if _, err := f.svc.Update(ctx, f.member, created.ID, UpdateParams{Title: &title}); err != nil {
		t.Fatalf("no-op Update() error: %v", err)
	}
	if len(f.notify.updated) != 1 {
		t.Errorf("no-op update emitted an event")
	}

	// Status through Update gets both an updated and a status_changed entry.
	status := board.StatusDone
	if _, err := f.svc.Update(ctx, f.member, created.ID, UpdateParams{Status: &status}); err != nil {
		t.Fatalf("status Update() error: %v", err)
	}
	if n := f.activityCount(t, board.ActionStatusChanged); n != 1 {
		t.Errorf("status_changed entries = %d, want 1", n)
	}
	if n := f.activityCount(t, board.ActionUpdated); n != 2 {
		t.Errorf("updated entries = %d, want 2", n)
	}
	if len(f.notify.completed) != 1 {
		t.Errorf("completed events = %d, want 1", len(f.notify.completed))
	}
}

func TestAttachTagIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	bug, err := f.tags.Create(ctx, f.member, tag.CreateParams{Name: "Bug"})
	if err != nil {
		t.Fatalf("tag Create() error: %v", err)
	}

	if err := f.svc.AttachTag(ctx, f.member, created.ID, bug.ID); err != nil {
		t.Fatalf("AttachTag() error: %v", err)
	}
	if err := f.svc.AttachTag(ctx, f.member, created.ID, bug.ID); err != nil {
		t.Fatalf("second AttachTag() error: %v", err)
	}

	var links int64
	f.db.Model(&board.TaskTag{}).Where("task_id = ?", created.ID).Count(&links)
	if links != 1 {
		t.Errorf("tag links = %d, want 1", links)
	}

	if err := f.svc.DetachTag(ctx, f.member, created.ID, bug.ID); err != nil {
		t.Fatalf("DetachTag() error: %v", err)
	}
	// The link is gone now; detaching again is a not-found failure.
	if err := f.svc.DetachTag(ctx, f.member, created.ID, bug.ID); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("detach of absent link = %v, want ErrNotFound", err)
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.svc.AddComment(ctx, f.member, created.ID, "note"); err != nil {
		t.Fatalf("AddComment() error: %v", err)
	}
	bug, _ := f.tags.Create(ctx, f.member, tag.CreateParams{Name: "Bug"})
	if err := f.svc.AttachTag(ctx, f.member, created.ID, bug.ID); err != nil {
		t.Fatalf("AttachTag() error: %v", err)
	}

	if err := f.svc.Delete(ctx, f.member, created.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	var tasks, comments, links int64
	f.db.Model(&board.Task{}).Count(&tasks)
	f.db.Model(&board.Comment{}).Count(&comments)
	f.db.Model(&board.TaskTag{}).Count(&links)
	if tasks != 0 || comments != 0 || links != 0 {
		t.Errorf("leftovers after delete: tasks=%d comments=%d links=%d", tasks, comments, links)
	}
	if n := f.activityCount(t, board.ActionDeleted); n != 1 {
		t.Errorf("deleted entries = %d, want 1", n)
	}
	if len(f.notify.deleted) != 1 {
		t.Errorf("deleted events = %d, want 1", len(f.notify.deleted))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.member, created.ID, board.StatusInProgress); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}

	entries, err := f.svc.History(ctx, f.viewer, created.ID, 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Action != board.ActionStatusChanged || entries[1].Action != board.ActionCreated {
		t.Errorf("order = %q,%q, want status_changed,created", entries[0].Action, entries[1].Action)
	}

	if _, err := f.svc.History(ctx, f.outsider, created.ID, 0); !errors.Is(err, board.ErrAccessDenied) {
		t.Errorf("outsider history = %v, want ErrAccessDenied", err)
	}
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	comment, err := f.svc.AddComment(ctx, f.member, created.ID, "Looks good to me")
	if err != nil {
		t.Fatalf("AddComment() error: %v", err)
	}
	if len(f.notify.comments) != 1 || f.notify.comments[0].Preview != "Looks good to me" {
		t.Errorf("comment events = %+v", f.notify.comments)
	}
	if n := f.activityCount(t, board.ActionCommented); n != 1 {
		t.Errorf("commented entries = %d, want 1", n)
	}

	// Viewers can read but not write.
	if _, err := f.svc.AddComment(ctx, f.viewer, created.ID, "me too"); !errors.Is(err, board.ErrAccessDenied) {
		t.Errorf("viewer comment = %v, want ErrAccessDenied", err)
	}
	listed, err := f.svc.Comments(ctx, f.viewer, created.ID)
	if err != nil {
		t.Fatalf("Comments() error: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("comments = %d, want 1", len(listed))
	}

	// Only the author edits.
	if _, err := f.svc.EditComment(ctx, f.owner, comment.ID, "rewritten"); !errors.Is(err, board.ErrNotCommentAuthor) {
		t.Errorf("non-author edit = %v, want ErrNotCommentAuthor", err)
	}
	edited, err := f.svc.EditComment(ctx, f.member, comment.ID, "Actually, hold on")
	if err != nil {
		t.Fatalf("EditComment() error: %v", err)
	}
	if !edited.IsEdited {
		t.Error("edited flag not set")
	}

	// The owner may delete other people's comments; a viewer may not.
	if err := f.svc.DeleteComment(ctx, f.viewer, comment.ID); !errors.Is(err, board.ErrAccessDenied) {
		t.Errorf("viewer delete = %v, want ErrAccessDenied", err)
	}
	if err := f.svc.DeleteComment(ctx, f.owner, comment.ID); err != nil {
		t.Fatalf("owner DeleteComment() error: %v", err)
	}
}

func TestCommentPreviewTruncation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "T"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := f.svc.AddComment(ctx, f.member, created.ID, string(long)); err != nil {
		t.Fatalf("AddComment() error: %v", err)
	}
	if got := len(f.notify.comments[0].Preview); got != commentPreviewLen {
		t.Errorf("preview length = %d, want %d", got, commentPreviewLen)
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	soon := time.Now().UTC().Add(24 * time.Hour)
	later := time.Now().UTC().Add(30 * 24 * time.Hour)
	first, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "Fix login redirect", DueDate: &soon})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	second, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{
		Title:       "Write docs",
		Description: "Draft the release notes",
		DueDate:     &later,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	undated, err := f.svc.Create(ctx, f.member, f.project.ID, CreateParams{Title: "Triage backlog"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Touch the first task so it becomes the most recently updated.
	newer := time.Now().UTC().Add(time.Hour)
	f.db.Model(&board.Task{}).Where("id = ?", first.ID).UpdateColumn("updated_at", newer)

	tasks, err := f.svc.List(ctx, f.member, f.project.ID, Filter{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(tasks) != 3 || tasks[0].ID != first.ID {
		t.Errorf("listing is not most-recently-updated first: %v", taskIDs(tasks))
	}

	// due_before keeps dated tasks at or before the cutoff; undated tasks
	// never match.
	cutoff := time.Now().UTC().Add(48 * time.Hour)
	dated, err := f.svc.List(ctx, f.member, f.project.ID, Filter{DueBefore: &cutoff})
	if err != nil {
		t.Fatalf("List(due before) error: %v", err)
	}
	if len(dated) != 1 || dated[0].ID != first.ID {
		t.Errorf("due-before filter = %v, want just %q", taskIDs(dated), first.ID)
	}

	// Search matches title and description, case-insensitively.
	found, err := f.svc.List(ctx, f.member, f.project.ID, Filter{Search: "RELEASE"})
	if err != nil {
		t.Fatalf("List(search) error: %v", err)
	}
	if len(found) != 1 || found[0].ID != second.ID {
		t.Errorf("search filter = %v, want just %q", taskIDs(found), second.ID)
	}
	if _, err := f.svc.List(ctx, f.member, f.project.ID, Filter{Search: "nothing matches this"}); err != nil {
		t.Fatalf("List(search miss) error: %v", err)
	}
	_ = undated
}

func taskIDs(tasks []*board.Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}
