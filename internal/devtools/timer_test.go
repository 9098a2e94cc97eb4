package devtools

import (
	"testing"
)

func TestTimerDefaultsToIdleWork(t *testing.T) {
	timer := NewTimer(TimerConfig{})
	snapshot := timer.Snapshot()
	if snapshot.Mode != ModeWork {
		t.Fatalf("expected work mode, got %q", snapshot.Mode)
	}
	if snapshot.Minutes != defaultWorkMinutes || snapshot.Seconds != 0 {
		t.Fatalf("expected %d:00, got %d:%02d", defaultWorkMinutes, snapshot.Minutes, snapshot.Seconds)
	}
	if snapshot.Running {
		t.Fatal("expected idle timer")
	}
}

func TestTimerIgnoresTicksWhilePaused(t *testing.T) {
	timer := NewTimer(TimerConfig{})
	if expired := timer.Tick(); expired {
		t.Fatal("paused timer must not expire")
	}
	snapshot := timer.Snapshot()
	if snapshot.Minutes != defaultWorkMinutes || snapshot.Seconds != 0 {
		t.Fatalf("paused timer moved to %d:%02d", snapshot.Minutes, snapshot.Seconds)
	}
}

func TestTimerTickBorrowsMinute(t *testing.T) {
	timer := NewTimer(TimerConfig{})
	timer.Start()
	timer.Tick()
	snapshot := timer.Snapshot()
	if snapshot.Minutes != defaultWorkMinutes-1 || snapshot.Seconds != 59 {
		t.Fatalf("expected %d:59 after one tick, got %d:%02d", defaultWorkMinutes-1, snapshot.Minutes, snapshot.Seconds)
	}
}

func TestTimerExpiryFromFiveSecondsSwitchesToShortBreak(t *testing.T) {
	var expiredInto TimerMode
	timer := NewTimer(TimerConfig{
		OnExpire: func(next TimerMode) { expiredInto = next },
	})
	timer.Restore(TimerSnapshot{Minutes: 0, Seconds: 5, Running: true, Mode: ModeWork})

	for tick := 0; tick < 4; tick++ {
		if expired := timer.Tick(); expired {
			t.Fatalf("premature expiry on tick %d", tick+1)
		}
	}
	if expired := timer.Tick(); !expired {
		t.Fatal("expected expiry on the fifth tick")
	}

	snapshot := timer.Snapshot()
	if snapshot.Mode != ModeShortBreak {
		t.Fatalf("expected shortBreak after work expiry, got %q", snapshot.Mode)
	}
	if snapshot.Minutes != defaultShortBreakMinutes || snapshot.Seconds != 0 {
		t.Fatalf("expected %d:00, got %d:%02d", defaultShortBreakMinutes, snapshot.Minutes, snapshot.Seconds)
	}
	if snapshot.Running {
		t.Fatal("expected idle timer after expiry without auto-continue")
	}
	if snapshot.WorkSessions != 1 {
		t.Fatalf("expected one completed work session, got %d", snapshot.WorkSessions)
	}
	if expiredInto != ModeShortBreak {
		t.Fatalf("expected expiry callback with shortBreak, got %q", expiredInto)
	}
}

func TestTimerAutoContinueKeepsRunning(t *testing.T) {
	timer := NewTimer(TimerConfig{AutoContinue: true})
	timer.Restore(TimerSnapshot{Minutes: 0, Seconds: 1, Running: true, Mode: ModeWork})

	if expired := timer.Tick(); !expired {
		t.Fatal("expected expiry")
	}
	if snapshot := timer.Snapshot(); !snapshot.Running {
		t.Fatal("expected timer still running with auto-continue")
	}
}

func TestTimerLongBreakEveryFourthSession(t *testing.T) {
	timer := NewTimer(TimerConfig{AutoContinue: true})

	expire := func() TimerSnapshot {
		t.Helper()
		snapshot := timer.Snapshot()
		timer.Restore(TimerSnapshot{Minutes: 0, Seconds: 1, Running: true, Mode: snapshot.Mode, WorkSessions: snapshot.WorkSessions})
		if expired := timer.Tick(); !expired {
			t.Fatal("expected expiry")
		}
		return timer.Snapshot()
	}

	timer.Start()
	for session := 1; session <= 3; session++ {
		after := expire()
		if after.Mode != ModeShortBreak {
			t.Fatalf("session %d: expected shortBreak, got %q", session, after.Mode)
		}
		after = expire()
		if after.Mode != ModeWork {
			t.Fatalf("session %d: expected return to work, got %q", session, after.Mode)
		}
	}

	after := expire()
	if after.Mode != ModeLongBreak {
		t.Fatalf("expected longBreak after fourth work session, got %q", after.Mode)
	}
	if after.Minutes != defaultLongBreakMinutes {
		t.Fatalf("expected %d minutes for long break, got %d", defaultLongBreakMinutes, after.Minutes)
	}
	if after.WorkSessions != 4 {
		t.Fatalf("expected four completed sessions, got %d", after.WorkSessions)
	}
}

func TestTimerBreakExpiryReturnsToWork(t *testing.T) {
	timer := NewTimer(TimerConfig{})
	timer.Restore(TimerSnapshot{Minutes: 0, Seconds: 1, Running: true, Mode: ModeShortBreak, WorkSessions: 1})

	if expired := timer.Tick(); !expired {
		t.Fatal("expected expiry")
	}
	snapshot := timer.Snapshot()
	if snapshot.Mode != ModeWork {
		t.Fatalf("expected work after break, got %q", snapshot.Mode)
	}
	if snapshot.WorkSessions != 1 {
		t.Fatalf("break expiry must not change session count, got %d", snapshot.WorkSessions)
	}
}

func TestTimerResetRestoresModeDuration(t *testing.T) {
	timer := NewTimer(TimerConfig{})
	timer.Start()
	timer.Tick()
	timer.Reset()
	snapshot := timer.Snapshot()
	if snapshot.Running {
		t.Fatal("reset must pause the timer")
	}
	if snapshot.Minutes != defaultWorkMinutes || snapshot.Seconds != 0 {
		t.Fatalf("expected full duration after reset, got %d:%02d", snapshot.Minutes, snapshot.Seconds)
	}
}

func TestTimerSetModeLoadsDuration(t *testing.T) {
	timer := NewTimer(TimerConfig{})
	if err := timer.SetMode(ModeLongBreak); err != nil {
		t.Fatalf("set mode failed: %v", err)
	}
	snapshot := timer.Snapshot()
	if snapshot.Mode != ModeLongBreak || snapshot.Minutes != defaultLongBreakMinutes {
		t.Fatalf("unexpected state after set mode: %#v", snapshot)
	}

	if err := timer.SetMode(TimerMode("nap")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestTimerRestoreRejectsCorruptSnapshots(t *testing.T) {
	timer := NewTimer(TimerConfig{})
	timer.Restore(TimerSnapshot{Minutes: 90, Seconds: 75, Running: false, Mode: TimerMode("bogus"), WorkSessions: -2})
	snapshot := timer.Snapshot()
	if snapshot.Mode != ModeWork {
		t.Fatalf("expected fallback to work mode, got %q", snapshot.Mode)
	}
	if snapshot.Minutes != defaultWorkMinutes || snapshot.Seconds != 0 {
		t.Fatalf("expected full work duration, got %d:%02d", snapshot.Minutes, snapshot.Seconds)
	}
	if snapshot.WorkSessions != 0 {
		t.Fatalf("expected session count clamped to zero, got %d", snapshot.WorkSessions)
	}
}
