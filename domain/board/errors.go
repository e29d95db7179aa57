package board

import "errors"

// Domain error kinds. Services return these (possibly wrapped); the API layer
// maps them to response codes.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when the actor's role is insufficient.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidAssignee is returned when assigning a task to a user who is
	// neither the project owner nor a roster member.
	ErrInvalidAssignee = errors.New("assignee is not a project member")

	// ErrTagScopeMismatch is returned when attaching a tag that belongs to a
	// different project than the task.
	ErrTagScopeMismatch = errors.New("tag belongs to a different project")

	// ErrDuplicateTagName is returned when a tag name already exists in the
	// same scope.
	ErrDuplicateTagName = errors.New("tag name already exists in this scope")

	// ErrGlobalTagImmutable is returned on update/delete of a global tag.
	ErrGlobalTagImmutable = errors.New("global tags cannot be modified")

	// ErrAlreadyMember is returned when adding a user who already has a
	// roster row.
	ErrAlreadyMember = errors.New("user is already a project member")

	// ErrCannotAddOwner is returned when adding the project owner to the
	// roster.
	ErrCannotAddOwner = errors.New("project owner cannot be added as member")

	// ErrCannotRemoveOwner is returned when removing the project owner.
	ErrCannotRemoveOwner = errors.New("cannot remove project owner")

	// ErrNotAMember is returned when updating or removing a user with no
	// roster row.
	ErrNotAMember = errors.New("user is not a project member")

	// ErrNotCommentAuthor is returned when editing someone else's comment.
	ErrNotCommentAuthor = errors.New("only the comment author may edit")

	// ErrConflict is returned on uniqueness violations outside tag scopes,
	// e.g. duplicate username or email.
	ErrConflict = errors.New("conflict")
)
