package live

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

const playerA = "6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f"
const playerB = "0b9a8c7d-6e5f-4a3b-9c2d-1e0f2a3b4c5d"

func TestAdvanceEncounterStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	state := NewState("s1", 600, testNow)
	if err := state.SetEncounterTotal(4); err != nil {
		t.Fatalf("set total: %v", err)
	}
	for i := 0; i < 500; i++ {
		step := 1
		if rng.Intn(2) == 0 {
			step = -1
		}
		if err := state.AdvanceEncounter(step); err != nil {
			t.Fatalf("advance: %v", err)
		}
		if state.EncounterCurrent < 0 || state.EncounterCurrent > state.EncounterTotal {
			t.Fatalf("encounter_current %d escaped [0,%d]", state.EncounterCurrent, state.EncounterTotal)
		}
		if i%97 == 0 {
			if err := state.SetEncounterTotal(rng.Intn(5)); err != nil {
				t.Fatalf("set total: %v", err)
			}
			if state.EncounterCurrent > state.EncounterTotal {
				t.Fatalf("total shrink left current %d above %d", state.EncounterCurrent, state.EncounterTotal)
			}
		}
	}
}

func TestAdvanceEncounterRejectsOtherSteps(t *testing.T) {
	state := NewState("s1", 0, testNow)
	if err := state.AdvanceEncounter(2); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("expected invalid step, got %v", err)
	}
	if err := state.SetEncounterTotal(-1); !errors.Is(err, ErrInvalidTotal) {
		t.Fatalf("expected invalid total, got %v", err)
	}
}

func TestEncounterPercent(t *testing.T) {
	state := NewState("s1", 0, testNow)
	if _, ok := EncounterPercent(state); ok {
		t.Fatalf("expected not set without a total")
	}
	state.EncounterTotal = 3
	state.EncounterCurrent = 2
	if pct, ok := EncounterPercent(state); !ok || pct != 67 {
		t.Fatalf("expected 67%%, got %d (%v)", pct, ok)
	}
}

func TestTimerResumeCountsFromAnchor(t *testing.T) {
	state := NewState("s1", 900, testNow)
	state.RemainingSeconds = 600
	state.TimerStatus = TimerPaused

	state.StartTimer(testNow)
	if state.RemainingSeconds != 600 {
		t.Fatalf("start must not touch remaining, got %d", state.RemainingSeconds)
	}
	if got := Countdown(state, testNow.Add(3*time.Second)); got != 597 {
		t.Fatalf("expected 597 three seconds after start, got %d", got)
	}
	if got := Countdown(state, testNow.Add(3500*time.Millisecond)); got != 597 {
		t.Fatalf("expected floor of elapsed seconds, got %d", got)
	}
}

func TestPausedCountdownNeverDecreases(t *testing.T) {
	state := NewState("s1", 120, testNow)
	state.StartTimer(testNow)
	state.PauseTimer(testNow.Add(10 * time.Second))

	frozen := Countdown(state, testNow.Add(10*time.Second))
	if frozen != 110 {
		t.Fatalf("expected pause to capture 110, got %d", frozen)
	}
	for i := 1; i <= 20; i++ {
		now := testNow.Add(time.Duration(10+i*7) * time.Second)
		if got := Countdown(state, now); got != frozen {
			t.Fatalf("paused countdown moved to %d at render %d", got, i)
		}
	}

	state.StartTimer(testNow.Add(60 * time.Second))
	if got := Countdown(state, testNow.Add(65*time.Second)); got != 105 {
		t.Fatalf("expected resume from 110, got %d", got)
	}
}

func TestCountdownClampsAtZero(t *testing.T) {
	state := NewState("s1", 5, testNow)
	state.StartTimer(testNow)
	if got := Countdown(state, testNow.Add(time.Hour)); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := Countdown(state, testNow.Add(-time.Minute)); got != 5 {
		t.Fatalf("expected clock behind anchor to show full remaining, got %d", got)
	}
}

func TestResetAndExtendTimer(t *testing.T) {
	state := NewState("s1", 300, testNow)
	state.StartTimer(testNow)
	state.ExtendTimer(DefaultExtendSeconds, testNow.Add(100*time.Second))
	if state.RemainingSeconds != 500 {
		t.Fatalf("expected running extend to fold elapsed, got %d", state.RemainingSeconds)
	}
	if !state.UpdatedAt.Equal(testNow.Add(100 * time.Second)) {
		t.Fatalf("expected extend to re-anchor updated_at")
	}

	state.ResetTimer(testNow.Add(120 * time.Second))
	if state.TimerStatus != TimerStopped || state.RemainingSeconds != 300 {
		t.Fatalf("unexpected reset state: %s %d", state.TimerStatus, state.RemainingSeconds)
	}

	state.ExtendTimer(-1000, testNow)
	if state.RemainingSeconds != 0 {
		t.Fatalf("expected floor at zero, got %d", state.RemainingSeconds)
	}
	if err := state.SetTimerDuration(-5, testNow); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected invalid duration, got %v", err)
	}
}

func TestShortPauseCyclesKeepSubSecondTime(t *testing.T) {
	state := NewState("s1", 600, testNow)
	now := testNow
	for i := 0; i < 10; i++ {
		state.StartTimer(now)
		now = now.Add(900 * time.Millisecond)
		state.PauseTimer(now)
		now = now.Add(5 * time.Second)
	}
	if got := Countdown(state, now); got != 591 {
		t.Fatalf("expected 9s of running time to be charged, got %d", got)
	}

	state.StartTimer(now)
	now = now.Add(900 * time.Millisecond)
	state.PauseTimer(now)
	if got := Countdown(state, now); got != 591 {
		t.Fatalf("expected 900ms to stay uncharged while paused, got %d", got)
	}
	state.StartTimer(now)
	if got := Countdown(state, now.Add(100*time.Millisecond)); got != 590 {
		t.Fatalf("expected carried 900ms to complete a second, got %d", got)
	}
}

func TestRepeatedRunningUpdatesKeepSubSecondTime(t *testing.T) {
	state := NewState("s1", 600, testNow)
	state.StartTimer(testNow)
	for i := 1; i <= 10; i++ {
		now := testNow.Add(time.Duration(i) * 1500 * time.Millisecond)
		if i%2 == 0 {
			state.StartTimer(now)
		} else {
			state.ExtendTimer(0, now)
		}
	}
	end := testNow.Add(15 * time.Second)
	if got := Countdown(state, end); got != 585 {
		t.Fatalf("expected 15s charged across re-anchors, got %d", got)
	}

	state.PauseTimer(end.Add(400 * time.Millisecond))
	state.ResetTimer(end.Add(time.Second))
	state.StartTimer(end.Add(time.Second))
	if !state.UpdatedAt.Equal(end.Add(time.Second)) {
		t.Fatalf("reset must drop any carried fraction")
	}
}

func TestSubmitRollResultFirstWins(t *testing.T) {
	state := NewState("s1", 0, testNow)
	if err := state.OpenRoll("d20", "Roll now", TargetAll, "r1"); err != nil {
		t.Fatalf("open roll: %v", err)
	}
	if err := state.SubmitRollResult(playerA, 14, SourcePlayer, testNow); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	before := state.Clone()
	if err := state.SubmitRollResult(playerA, 3, SourceManual, testNow.Add(time.Second)); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if state.RollResults[playerA] != before.RollResults[playerA] {
		t.Fatalf("second submission changed the stored result")
	}
}

func TestSubmitRollResultGuards(t *testing.T) {
	state := NewState("s1", 0, testNow)
	if err := state.SubmitRollResult(playerA, 4, SourcePlayer, testNow); !errors.Is(err, ErrRollClosed) {
		t.Fatalf("expected closed roll, got %v", err)
	}
	if err := state.OpenRoll("d6", "", playerB, "r1"); err != nil {
		t.Fatalf("open roll: %v", err)
	}
	if err := state.SubmitRollResult(playerA, 4, SourcePlayer, testNow); !errors.Is(err, ErrNotTargeted) {
		t.Fatalf("expected not targeted, got %v", err)
	}
	if err := state.SubmitRollResult(playerB, 7, SourcePlayer, testNow); !errors.Is(err, ErrInvalidRoll) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if err := state.SubmitRollResult(playerB, 6, "psychic", testNow); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("expected invalid source, got %v", err)
	}
	if len(state.RollResults) != 0 {
		t.Fatalf("rejected submissions must not be stored: %#v", state.RollResults)
	}
}

func TestSubmitRollResultFollowsRollMode(t *testing.T) {
	state := NewState("s1", 0, testNow)
	if err := state.OpenRoll("d20", "", TargetAll, "r1"); err != nil {
		t.Fatalf("open roll: %v", err)
	}
	if err := state.SubmitRollResult(playerA, 9, SourceDigital, testNow); !errors.Is(err, ErrWrongRollMode) {
		t.Fatalf("expected digital entry refused in player mode, got %v", err)
	}
	if err := state.SetRollMode(playerB, ModeDigital); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := state.SubmitRollResult(playerB, 9, SourcePlayer, testNow); !errors.Is(err, ErrWrongRollMode) {
		t.Fatalf("expected player entry refused in digital mode, got %v", err)
	}
	if len(state.RollResults) != 0 {
		t.Fatalf("refused entries must not be stored: %#v", state.RollResults)
	}

	if err := state.SubmitRollResult(playerB, 11, SourceManual, testNow); err != nil {
		t.Fatalf("storyteller entry should bypass mode: %v", err)
	}
	if err := state.SubmitRollResult(playerA, 3, SourcePlayer, testNow); err != nil {
		t.Fatalf("player entry: %v", err)
	}
	if len(state.RollResults) != 2 {
		t.Fatalf("expected two results, got %#v", state.RollResults)
	}
}

func TestOpenRollValidation(t *testing.T) {
	state := NewState("s1", 0, testNow)
	if err := state.OpenRoll("d7", "", TargetAll, "r1"); !errors.Is(err, ErrInvalidDie) {
		t.Fatalf("expected invalid die, got %v", err)
	}
	if err := state.OpenRoll("d20", "", "bob", "r1"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected invalid target, got %v", err)
	}
	if err := state.OpenRoll("d20", "", TargetAll, "r1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := state.OpenRoll("d20", "", TargetAll, "r1"); !errors.Is(err, ErrInvalidRound) {
		t.Fatalf("expected reused round id rejection, got %v", err)
	}
}

func TestRollLifecycleKeepsStaleResults(t *testing.T) {
	state := NewState("s1", 0, testNow)
	if err := state.OpenRoll("d20", "Roll now", TargetAll, "R1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := state.SubmitRollResult(playerA, 14, SourcePlayer, testNow); err != nil {
		t.Fatalf("submit: %v", err)
	}
	state.CloseRoll()
	if state.RollOpen || state.RollDie != "" || state.RollPrompt != "" {
		t.Fatalf("close must clear die and prompt: %#v", state)
	}
	if err := state.OpenRoll("d6", "Again", TargetAll, "R2"); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	stored := state.RollResults[playerA]
	if stored.RoundID != "R1" || stored.Value != 14 {
		t.Fatalf("expected stored R1 entry to survive, got %#v", stored)
	}
	if _, ok := state.CurrentResult(playerA); ok {
		t.Fatalf("stale R1 entry must read as no roll under R2")
	}
	view := RollEligibility(state, playerA)
	if view.Affordance != AffordanceInput {
		t.Fatalf("expected input affordance under R2, got %s", view.Affordance)
	}
}
