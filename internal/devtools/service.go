package devtools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diredev/campushub/internal/ids"
	"github.com/diredev/campushub/internal/live"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrTodoNotFound indicates the referenced todo does not exist.
	ErrTodoNotFound = errors.New("devtools: todo not found")
	// ErrNoteNotFound indicates the referenced note does not exist.
	ErrNoteNotFound = errors.New("devtools: note not found")
	// ErrNotOwner indicates the caller does not own the entity.
	ErrNotOwner = errors.New("devtools: caller is not the owner")
	// ErrEmptyText indicates required text is empty after trimming.
	ErrEmptyText = errors.New("devtools: text is empty")
	// ErrMissingOwner indicates a write is missing its owner identity.
	ErrMissingOwner = errors.New("devtools: owner identity is required")
)

// ServiceConfig describes the dependencies of the devtools service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Dispatcher *live.Dispatcher
	Logger     *zap.Logger
}

// Service owns the per-user dev tools: todos, markdown notes and the
// mirrored pomodoro timer. Every entity here is scoped to exactly one
// owner; cross-user reads and writes are rejected.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider ids.Provider
	dispatcher *live.Dispatcher
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("devtools: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("devtools: id provider required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("devtools: dispatcher required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
	}, nil
}

// AddTodo stores a new task for the owner.
func (s *Service) AddTodo(ctx context.Context, ownerID, rawText string, priority Priority) (Todo, error) {
	if ownerID == "" {
		return Todo{}, ErrMissingOwner
	}
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Todo{}, ErrEmptyText
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if _, err := ParsePriority(string(priority)); err != nil {
		return Todo{}, err
	}

	todoID, err := s.idProvider.NewID()
	if err != nil {
		return Todo{}, fmt.Errorf("devtools: id generation failed: %w", err)
	}
	todo := Todo{
		TodoID:           todoID,
		OwnerID:          ownerID,
		Text:             text,
		Priority:         priority,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&todo).Error; err != nil {
		s.logger.Error("todo insert failed", zap.String("owner_id", ownerID), zap.Error(err))
		return Todo{}, fmt.Errorf("devtools: todo insert failed: %w", err)
	}
	s.publish(live.TodosTopic(ownerID), live.ActionAdded, todo.TodoID)
	return todo, nil
}

// ListTodos returns the owner's tasks in ascending creation order with
// identifier tie-break.
func (s *Service) ListTodos(ctx context.Context, ownerID string) ([]Todo, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	var todos []Todo
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at_s ASC, todo_id ASC").
		Find(&todos).Error; err != nil {
		s.logger.Error("todo query failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("devtools: todo query failed: %w", err)
	}
	return todos, nil
}

// ToggleTodo flips the completed flag. Owner-only.
func (s *Service) ToggleTodo(ctx context.Context, todoID TodoID, ownerID string) (Todo, error) {
	var todo Todo
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("todo_id = ?", todoID.String()).Take(&todo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTodoNotFound
			}
			return fmt.Errorf("devtools: todo select failed: %w", err)
		}
		if todo.OwnerID != ownerID {
			return ErrNotOwner
		}
		todo.Completed = !todo.Completed
		return tx.Save(&todo).Error
	})
	if txErr != nil {
		return Todo{}, txErr
	}
	s.publish(live.TodosTopic(ownerID), live.ActionModified, todo.TodoID)
	return todo, nil
}

// DeleteTodo removes a task. Owner-only.
func (s *Service) DeleteTodo(ctx context.Context, todoID TodoID, ownerID string) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var todo Todo
		if err := tx.Where("todo_id = ?", todoID.String()).Take(&todo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTodoNotFound
			}
			return fmt.Errorf("devtools: todo select failed: %w", err)
		}
		if todo.OwnerID != ownerID {
			return ErrNotOwner
		}
		return tx.Delete(&Todo{}, "todo_id = ?", todoID.String()).Error
	})
	if txErr != nil {
		return txErr
	}
	s.publish(live.TodosTopic(ownerID), live.ActionRemoved, todoID.String())
	return nil
}

// CreateNote stores a new note for the owner.
func (s *Service) CreateNote(ctx context.Context, ownerID, rawTitle, body string) (Note, error) {
	if ownerID == "" {
		return Note{}, ErrMissingOwner
	}
	title := strings.TrimSpace(rawTitle)
	if title == "" {
		return Note{}, ErrEmptyText
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		return Note{}, fmt.Errorf("devtools: id generation failed: %w", err)
	}
	now := s.clock().UTC().Unix()
	note := Note{
		NoteID:           noteID,
		OwnerID:          ownerID,
		Title:            title,
		Body:             body,
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logger.Error("note insert failed", zap.String("owner_id", ownerID), zap.Error(err))
		return Note{}, fmt.Errorf("devtools: note insert failed: %w", err)
	}
	s.publish(live.NotesTopic(ownerID), live.ActionAdded, note.NoteID)
	return note, nil
}

// SaveNote overwrites a note's title and body. Concurrent saves
// resolve last-write-wins; the later write replaces the earlier one
// whole. Owner-only.
func (s *Service) SaveNote(ctx context.Context, noteID NoteID, ownerID, rawTitle, body string) (Note, error) {
	title := strings.TrimSpace(rawTitle)
	if title == "" {
		return Note{}, ErrEmptyText
	}

	var note Note
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", noteID.String()).Take(&note).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoteNotFound
			}
			return fmt.Errorf("devtools: note select failed: %w", err)
		}
		if note.OwnerID != ownerID {
			return ErrNotOwner
		}
		note.Title = title
		note.Body = body
		note.UpdatedAtSeconds = s.clock().UTC().Unix()
		return tx.Save(&note).Error
	})
	if txErr != nil {
		return Note{}, txErr
	}
	s.publish(live.NotesTopic(ownerID), live.ActionModified, note.NoteID)
	return note, nil
}

// GetNote fetches one of the owner's notes.
func (s *Service) GetNote(ctx context.Context, noteID NoteID, ownerID string) (Note, error) {
	var note Note
	err := s.db.WithContext(ctx).Where("note_id = ?", noteID.String()).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("devtools: note select failed: %w", err)
	}
	if note.OwnerID != ownerID {
		return Note{}, ErrNotOwner
	}
	return note, nil
}

// ListNotes returns the owner's notes, most recently updated first.
func (s *Service) ListNotes(ctx context.Context, ownerID string) ([]Note, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	var notes []Note
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at_s DESC, note_id ASC").
		Find(&notes).Error; err != nil {
		s.logger.Error("note query failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("devtools: note query failed: %w", err)
	}
	return notes, nil
}

// DeleteNote removes a note. Owner-only.
func (s *Service) DeleteNote(ctx context.Context, noteID NoteID, ownerID string) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note Note
		if err := tx.Where("note_id = ?", noteID.String()).Take(&note).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoteNotFound
			}
			return fmt.Errorf("devtools: note select failed: %w", err)
		}
		if note.OwnerID != ownerID {
			return ErrNotOwner
		}
		return tx.Delete(&Note{}, "note_id = ?", noteID.String()).Error
	})
	if txErr != nil {
		return txErr
	}
	s.publish(live.NotesTopic(ownerID), live.ActionRemoved, noteID.String())
	return nil
}

// LoadTimer returns the owner's mirrored timer state, or an idle work
// timer when none was ever saved.
func (s *Service) LoadTimer(ctx context.Context, ownerID string) (TimerSnapshot, error) {
	if ownerID == "" {
		return TimerSnapshot{}, ErrMissingOwner
	}
	var record TimerRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TimerSnapshot{Minutes: defaultWorkMinutes, Mode: ModeWork}, nil
	}
	if err != nil {
		return TimerSnapshot{}, fmt.Errorf("devtools: timer select failed: %w", err)
	}
	return TimerSnapshot{
		Minutes:      record.Minutes,
		Seconds:      record.Seconds,
		Running:      record.Running,
		Mode:         record.Mode,
		WorkSessions: record.WorkSessions,
	}, nil
}

// SaveTimer mirrors a timer snapshot for cross-session resume. The
// mirror is best-effort; local countdown correctness never depends on
// this write succeeding.
func (s *Service) SaveTimer(ctx context.Context, ownerID string, snapshot TimerSnapshot) error {
	if ownerID == "" {
		return ErrMissingOwner
	}
	if _, err := ParseTimerMode(string(snapshot.Mode)); err != nil {
		return err
	}
	record := TimerRecord{
		UserID:           ownerID,
		Minutes:          snapshot.Minutes,
		Seconds:          snapshot.Seconds,
		Running:          snapshot.Running,
		Mode:             snapshot.Mode,
		WorkSessions:     snapshot.WorkSessions,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&record).Error; err != nil {
		s.logger.Warn("timer mirror failed", zap.String("owner_id", ownerID), zap.Error(err))
		return fmt.Errorf("devtools: timer mirror failed: %w", err)
	}
	s.publish(live.TimerTopic(ownerID), live.ActionModified, ownerID)
	return nil
}

func (s *Service) publish(topic string, action live.Action, docID string) {
	s.dispatcher.Publish(live.Event{
		Topic:     topic,
		Action:    action,
		DocID:     docID,
		Timestamp: s.clock().UTC(),
	})
}
