// Package board holds the persistent entities and pure access rules shared by
// every taskboard module.
package board

import (
	"time"
)

// User is an account holder. Accounts are deactivated, never hard-deleted.
type User struct {
	ID           string     `gorm:"primarykey;size:36" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	FullName     string     `gorm:"size:100" json:"full_name"`
	AvatarURL    string     `gorm:"size:255" json:"avatar_url,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// Project groups tasks, tags and members under a single owner. The owner is
// fixed at creation; deletion archives the project instead of removing it.
type Project struct {
	ID          string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	OwnerID     string    `gorm:"size:36;not null;index" json:"owner_id"`
	Color       string    `gorm:"size:7" json:"color,omitempty"`
	Icon        string    `gorm:"size:50" json:"icon,omitempty"`
	IsArchived  bool      `gorm:"not null;default:false" json:"is_archived"`
}

// TableName returns the table name for Project.
func (Project) TableName() string {
	return "projects"
}

// ProjectMember is one roster row. The owner never appears here; ownership is
// an implicit super-role resolved from Project.OwnerID.
type ProjectMember struct {
	ProjectID string    `gorm:"primarykey;size:36" json:"project_id"`
	UserID    string    `gorm:"primarykey;size:36" json:"user_id"`
	Role      Role      `gorm:"size:10;not null" json:"role"`
	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`
}

// TableName returns the table name for ProjectMember.
func (ProjectMember) TableName() string {
	return "project_members"
}

// Task belongs to exactly one project. CompletedAt is set exactly when the
// status enters done and cleared when it leaves done.
type Task struct {
	ID             string     `gorm:"primarykey;size:36" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Title          string     `gorm:"size:200;not null" json:"title"`
	Description    string     `gorm:"size:2000" json:"description"`
	ProjectID      string     `gorm:"size:36;not null;index" json:"project_id"`
	CreatorID      string     `gorm:"size:36;not null" json:"creator_id"`
	AssigneeID     *string    `gorm:"size:36;index" json:"assignee_id,omitempty"`
	Status         Status     `gorm:"size:20;not null" json:"status"`
	Priority       Priority   `gorm:"size:10;not null" json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// TableName returns the table name for Task.
func (Task) TableName() string {
	return "tasks"
}

// Tag is a label. ProjectID nil means global scope; names are unique within
// their scope (global tags and each project's tags are separate namespaces).
type Tag struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:50;not null;index" json:"name"`
	Color     string    `gorm:"size:7" json:"color,omitempty"`
	ProjectID *string   `gorm:"size:36;index" json:"project_id,omitempty"`
}

// TableName returns the table name for Tag.
func (Tag) TableName() string {
	return "tags"
}

// IsGlobal reports whether the tag lives in the global scope.
func (t Tag) IsGlobal() bool {
	return t.ProjectID == nil
}

// TaskTag links a task to a tag.
type TaskTag struct {
	TaskID string `gorm:"primarykey;size:36" json:"task_id"`
	TagID  string `gorm:"primarykey;size:36" json:"tag_id"`
}

// TableName returns the table name for TaskTag.
func (TaskTag) TableName() string {
	return "task_tags"
}

// Comment is authored on a task. Only the author may edit it.
type Comment struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TaskID    string    `gorm:"size:36;not null;index" json:"task_id"`
	UserID    string    `gorm:"size:36;not null" json:"user_id"`
	Content   string    `gorm:"size:2000;not null" json:"content"`
	IsEdited  bool      `gorm:"not null;default:false" json:"is_edited"`
}

// TableName returns the table name for Comment.
func (Comment) TableName() string {
	return "comments"
}

// ActivityLog is one append-only ledger entry. Application code never updates
// or deletes rows.
type ActivityLog struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UserID    string    `gorm:"size:36;not null" json:"user_id"`
	ProjectID string    `gorm:"size:36;not null;index" json:"project_id"`
	TaskID    *string   `gorm:"size:36;index" json:"task_id,omitempty"`
	Action    Action    `gorm:"size:20;not null" json:"action"`
	Details   string    `gorm:"size:2000" json:"details,omitempty"`
}

// TableName returns the table name for ActivityLog.
func (ActivityLog) TableName() string {
	return "activity_logs"
}
