package devtools

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidTodoID indicates a todo identifier is empty or too long.
	ErrInvalidTodoID = errors.New("devtools: invalid todo id")
	// ErrInvalidNoteID indicates a note identifier is empty or too long.
	ErrInvalidNoteID = errors.New("devtools: invalid note id")
	// ErrInvalidPriority indicates an unknown todo priority.
	ErrInvalidPriority = errors.New("devtools: invalid priority")
)

// TodoID represents a validated todo identifier.
type TodoID string

// NewTodoID validates raw input and returns a TodoID.
func NewTodoID(rawInput string) (TodoID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTodoID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidTodoID, maxIdentifierLength)
	}
	return TodoID(trimmed), nil
}

// String returns the underlying string identifier.
func (id TodoID) String() string {
	return string(id)
}

// NoteID represents a validated note identifier.
type NoteID string

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNoteID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidNoteID, maxIdentifierLength)
	}
	return NoteID(trimmed), nil
}

// String returns the underlying string identifier.
func (id NoteID) String() string {
	return string(id)
}

// Priority orders todos in the task board.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority validates a raw priority value, defaulting to medium.
func ParsePriority(rawInput string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(PriorityHigh):
		return PriorityHigh, nil
	case string(PriorityMedium), "":
		return PriorityMedium, nil
	case string(PriorityLow):
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, rawInput)
	}
}

// Todo is a user-scoped task. Only the owner may toggle or delete it.
type Todo struct {
	TodoID           string   `gorm:"column:todo_id;primaryKey;size:190;not null"`
	OwnerID          string   `gorm:"column:owner_id;size:190;not null;index:idx_todos_owner_created,priority:1"`
	Text             string   `gorm:"column:text;type:text;not null"`
	Completed        bool     `gorm:"column:completed;not null;default:false"`
	Priority         Priority `gorm:"column:priority;size:16;not null;default:'medium'"`
	CreatedAtSeconds int64    `gorm:"column:created_at_s;not null;index:idx_todos_owner_created,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Todo) TableName() string {
	return "devtools_todos"
}

// Note is a user-scoped markdown document. Concurrent edits resolve
// last-write-wins; there is no merge.
type Note struct {
	NoteID           string `gorm:"column:note_id;primaryKey;size:190;not null"`
	OwnerID          string `gorm:"column:owner_id;size:190;not null;index:idx_notes_owner_updated,priority:1"`
	Title            string `gorm:"column:title;size:320;not null"`
	Body             string `gorm:"column:body;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null;index:idx_notes_owner_updated,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "devtools_notes"
}

// TimerRecord mirrors a user's countdown timer for cross-session
// resume. The in-memory machine is authoritative; this row is a
// best-effort copy.
type TimerRecord struct {
	UserID           string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Minutes          int       `gorm:"column:minutes;not null"`
	Seconds          int       `gorm:"column:seconds;not null"`
	Running          bool      `gorm:"column:running;not null;default:false"`
	Mode             TimerMode `gorm:"column:mode;size:16;not null;default:'work'"`
	WorkSessions     int       `gorm:"column:work_sessions;not null;default:0"`
	UpdatedAtSeconds int64     `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (TimerRecord) TableName() string {
	return "devtools_timers"
}
