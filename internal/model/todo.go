package model

import "time"

// TodoStatus is the lifecycle state of a todo. Every state can move to every
// other state; the only side effect of a move is on CompletedAt.
type TodoStatus string

const (
	StatusPending    TodoStatus = "pending"
	StatusInProgress TodoStatus = "in_progress"
	StatusCompleted  TodoStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TodoStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority bounds. Lower numbers mean more urgent by convention only.
const (
	MinPriority = 0
	MaxPriority = 4
)

// Todo is a single task owned by one user.
//
// Nullable columns are pointers so they serialise as JSON null.
type Todo struct {
	ID          string     `json:"id"           db:"id"`
	UserID      string     `json:"-"            db:"user_id"`
	Title       string     `json:"title"        db:"title"`
	Description *string    `json:"description"  db:"description"`
	Status      TodoStatus `json:"status"       db:"status"`
	Priority    *int       `json:"priority"     db:"priority"`
	DueDate     *Date      `json:"due_date"     db:"due_date"`
	CategoryID  *string    `json:"category_id"  db:"category_id"`
	CreatedAt   time.Time  `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"   db:"updated_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// NewTodo holds the client-supplied fields of a todo being created.
// Status and timestamps are always assigned by the service.
type NewTodo struct {
	Title       string
	Description *string
	Priority    *int
	DueDate     *Date
	CategoryID  *string
}

// TodoPatch is a partial update. Fields that are not Set are left alone;
// fields that are Set to null are cleared. Title and Status cannot be null.
type TodoPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Status      Optional[TodoStatus]
	Priority    Optional[int]
	DueDate     Optional[Date]
	CategoryID  Optional[string]
}

// Apply writes the patch onto t and stamps UpdatedAt with now.
// Ownership of a new CategoryID must be checked by the caller first.
func (p TodoPatch) Apply(t *Todo, now time.Time) {
	if p.Title.Value != nil {
		t.Title = *p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value
	}
	if p.CategoryID.Set {
		t.CategoryID = p.CategoryID.Value
	}
	if p.Status.Value != nil {
		next := *p.Status.Value
		t.CompletedAt = DeriveCompletedAt(t.Status, next, t.CompletedAt, now)
		t.Status = next
	}
	t.UpdatedAt = now
}

// DeriveCompletedAt returns the completion timestamp after a status change
// from oldStatus to newStatus:
//
//	not completed → completed   now
//	completed → not completed   nil
//	unchanged                   oldTS
func DeriveCompletedAt(oldStatus, newStatus TodoStatus, oldTS *time.Time, now time.Time) *time.Time {
	switch {
	case oldStatus == newStatus:
		return oldTS
	case newStatus == StatusCompleted:
		return &now
	case oldStatus == StatusCompleted:
		return nil
	default:
		return oldTS
	}
}
