package live

import (
	"context"
	"errors"
	"sync"
)

// EditPhase names a state of the edit-in-place machine.
type EditPhase string

const (
	// EditPhaseViewing means no draft exists.
	EditPhaseViewing EditPhase = "viewing"
	// EditPhaseEditing means a local draft is open.
	EditPhaseEditing EditPhase = "editing"
	// EditPhaseSaving means the draft is being written remotely.
	EditPhaseSaving EditPhase = "saving"
)

var (
	// ErrEditNotViewing indicates Begin was called with a draft already open.
	ErrEditNotViewing = errors.New("live: edit session already open")
	// ErrEditNotEditing indicates a draft operation without an open draft.
	ErrEditNotEditing = errors.New("live: no open edit draft")
	// ErrMissingSaveFunc indicates the session was built without a save callback.
	ErrMissingSaveFunc = errors.New("live: save callback is required")
)

// SaveFunc persists a finished draft. It must return only after the
// write is acknowledged or rejected.
type SaveFunc func(ctx context.Context, draft string) error

// EditSession is the edit-in-place state machine shared by message,
// note and discussion-title editing. Entering the editing phase
// snapshots the current remote value into a local draft; Cancel
// discards the draft without any remote call, and a failed Save
// returns to editing with the draft intact so nothing typed is lost.
//
// Remote updates arriving while a draft is open are not merged into
// it: the last local edit wins on save.
type EditSession struct {
	mu    sync.Mutex
	phase EditPhase
	draft string
	save  SaveFunc
}

// NewEditSession constructs a session in the viewing phase.
func NewEditSession(save SaveFunc) (*EditSession, error) {
	if save == nil {
		return nil, ErrMissingSaveFunc
	}
	return &EditSession{phase: EditPhaseViewing, save: save}, nil
}

// Begin opens a draft seeded with the current remote value.
func (s *EditSession) Begin(current string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != EditPhaseViewing {
		return ErrEditNotViewing
	}
	s.phase = EditPhaseEditing
	s.draft = current
	return nil
}

// SetDraft replaces the draft text while editing.
func (s *EditSession) SetDraft(draft string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != EditPhaseEditing {
		return ErrEditNotEditing
	}
	s.draft = draft
	return nil
}

// Draft returns the current draft text.
func (s *EditSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Phase reports the current machine state.
func (s *EditSession) Phase() EditPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Save writes the draft through the save callback. On acknowledgment
// the session returns to viewing; on failure it returns to editing so
// the caller can retry or cancel with the draft preserved.
func (s *EditSession) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != EditPhaseEditing {
		s.mu.Unlock()
		return ErrEditNotEditing
	}
	s.phase = EditPhaseSaving
	draft := s.draft
	s.mu.Unlock()

	err := s.save(ctx, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = EditPhaseEditing
		return err
	}
	s.phase = EditPhaseViewing
	s.draft = ""
	return nil
}

// Cancel discards the draft without touching the remote value.
func (s *EditSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != EditPhaseEditing {
		return ErrEditNotEditing
	}
	s.phase = EditPhaseViewing
	s.draft = ""
	return nil
}
