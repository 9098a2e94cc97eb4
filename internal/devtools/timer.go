package devtools

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// TimerMode names a pomodoro phase.
type TimerMode string

const (
	ModeWork       TimerMode = "work"
	ModeShortBreak TimerMode = "shortBreak"
	ModeLongBreak  TimerMode = "longBreak"
)

// ErrInvalidTimerMode indicates an unknown timer mode value.
var ErrInvalidTimerMode = errors.New("devtools: invalid timer mode")

// ParseTimerMode validates a raw mode value.
func ParseTimerMode(rawInput string) (TimerMode, error) {
	switch strings.TrimSpace(rawInput) {
	case string(ModeWork), "":
		return ModeWork, nil
	case string(ModeShortBreak):
		return ModeShortBreak, nil
	case string(ModeLongBreak):
		return ModeLongBreak, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimerMode, rawInput)
	}
}

const (
	defaultWorkMinutes       = 25
	defaultShortBreakMinutes = 5
	defaultLongBreakMinutes  = 15
	defaultLongBreakEvery    = 4
)

// TimerConfig tunes the countdown machine. Zero values pick the usual
// pomodoro defaults.
type TimerConfig struct {
	WorkMinutes       int
	ShortBreakMinutes int
	LongBreakMinutes  int
	// LongBreakEvery selects a long break after every Nth completed
	// work session instead of a short one.
	LongBreakEvery int
	// AutoContinue keeps the timer running across a mode switch.
	AutoContinue bool
	// OnExpire is invoked after an expiry transition with the mode the
	// machine switched into. Called outside the machine's lock.
	OnExpire func(next TimerMode)
}

// TimerSnapshot is the externally visible timer state, mirrored to
// storage for cross-session resume.
type TimerSnapshot struct {
	Minutes      int
	Seconds      int
	Running      bool
	Mode         TimerMode
	WorkSessions int
}

// Timer is the countdown state machine: idle -> running -> idle on
// pause, and running -> expired -> next mode on reaching 0:00. Each
// Tick decrements one second, borrowing a minute at zero seconds.
// Ticking is driven externally on a one-second cadence so tests can
// step time deterministically.
type Timer struct {
	cfg TimerConfig

	mu       sync.Mutex
	minutes  int
	seconds  int
	running  bool
	mode     TimerMode
	sessions int
}

// NewTimer constructs an idle timer in work mode.
func NewTimer(cfg TimerConfig) *Timer {
	if cfg.WorkMinutes <= 0 {
		cfg.WorkMinutes = defaultWorkMinutes
	}
	if cfg.ShortBreakMinutes <= 0 {
		cfg.ShortBreakMinutes = defaultShortBreakMinutes
	}
	if cfg.LongBreakMinutes <= 0 {
		cfg.LongBreakMinutes = defaultLongBreakMinutes
	}
	if cfg.LongBreakEvery <= 0 {
		cfg.LongBreakEvery = defaultLongBreakEvery
	}
	return &Timer{
		cfg:     cfg,
		minutes: cfg.WorkMinutes,
		mode:    ModeWork,
	}
}

// Start resumes the countdown.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
}

// Pause halts the countdown without resetting it.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

// Reset stops the timer and restores the current mode's full duration.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.minutes = t.modeMinutes(t.mode)
	t.seconds = 0
}

// SetMode switches phases manually, stopping the countdown and loading
// the new mode's full duration.
func (t *Timer) SetMode(mode TimerMode) error {
	if _, err := ParseTimerMode(string(mode)); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	t.minutes = t.modeMinutes(mode)
	t.seconds = 0
	t.running = false
	return nil
}

// Tick advances the countdown by one second and reports whether this
// tick expired the current phase. A paused timer ignores ticks.
func (t *Timer) Tick() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return false
	}

	if t.seconds > 0 {
		t.seconds--
	} else if t.minutes > 0 {
		t.minutes--
		t.seconds = 59
	}

	if t.minutes != 0 || t.seconds != 0 {
		t.mu.Unlock()
		return false
	}

	next := t.nextMode()
	t.mode = next
	t.minutes = t.modeMinutes(next)
	t.seconds = 0
	// The machine returns to running across the switch only when
	// auto-continue is configured; otherwise the user restarts it.
	t.running = t.cfg.AutoContinue
	onExpire := t.cfg.OnExpire
	t.mu.Unlock()

	if onExpire != nil {
		onExpire(next)
	}
	return true
}

// Snapshot returns a copy of the current timer state.
func (t *Timer) Snapshot() TimerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimerSnapshot{
		Minutes:      t.minutes,
		Seconds:      t.seconds,
		Running:      t.running,
		Mode:         t.mode,
		WorkSessions: t.sessions,
	}
}

// Restore loads a mirrored snapshot, resuming a timer from another
// session. Invalid snapshots fall back to an idle work timer.
func (t *Timer) Restore(snapshot TimerSnapshot) {
	mode, err := ParseTimerMode(string(snapshot.Mode))
	if err != nil {
		mode = ModeWork
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	t.minutes = snapshot.Minutes
	t.seconds = snapshot.Seconds
	if t.minutes < 0 || t.minutes > t.modeMinutes(mode) || t.seconds < 0 || t.seconds > 59 {
		t.minutes = t.modeMinutes(mode)
		t.seconds = 0
	}
	t.running = snapshot.Running
	t.sessions = snapshot.WorkSessions
	if t.sessions < 0 {
		t.sessions = 0
	}
}

func (t *Timer) nextMode() TimerMode {
	if t.mode == ModeWork {
		t.sessions++
		if t.sessions%t.cfg.LongBreakEvery == 0 {
			return ModeLongBreak
		}
		return ModeShortBreak
	}
	return ModeWork
}

func (t *Timer) modeMinutes(mode TimerMode) int {
	switch mode {
	case ModeShortBreak:
		return t.cfg.ShortBreakMinutes
	case ModeLongBreak:
		return t.cfg.LongBreakMinutes
	default:
		return t.cfg.WorkMinutes
	}
}
