package live

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

func (s *State) touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// fold moves whole elapsed seconds of a running timer into RemainingSeconds
// and returns the sub-second part that has not been charged yet.
func (s *State) fold(now time.Time) time.Duration {
	if s.TimerStatus != TimerRunning {
		return 0
	}
	elapsed := now.Sub(s.UpdatedAt)
	if elapsed <= 0 {
		return 0
	}
	whole := elapsed.Truncate(time.Second)
	s.RemainingSeconds -= int(whole / time.Second)
	if s.RemainingSeconds <= 0 {
		s.RemainingSeconds = 0
		return 0
	}
	return elapsed - whole
}

// anchor sets UpdatedAt so a running countdown resumes with carry already
// elapsed.
func (s *State) anchor(now time.Time, carry time.Duration) {
	s.UpdatedAt = now.Add(-carry).UTC()
}

func (s *State) StartTimer(now time.Time) {
	carry := s.fold(now)
	if s.TimerStatus != TimerRunning {
		carry = time.Duration(s.TimerCarryMillis) * time.Millisecond
	}
	s.TimerStatus = TimerRunning
	s.TimerCarryMillis = 0
	s.anchor(now, carry)
}

func (s *State) PauseTimer(now time.Time) {
	if s.TimerStatus == TimerRunning {
		s.TimerCarryMillis = int(s.fold(now) / time.Millisecond)
	}
	s.TimerStatus = TimerPaused
	s.touch(now)
}

func (s *State) ResetTimer(now time.Time) {
	s.TimerStatus = TimerStopped
	s.RemainingSeconds = s.DurationSeconds
	s.TimerCarryMillis = 0
	s.touch(now)
}

func (s *State) SetTimerDuration(seconds int, now time.Time) error {
	if seconds < 0 {
		return ErrInvalidDuration
	}
	s.DurationSeconds = seconds
	s.RemainingSeconds = seconds
	s.TimerStatus = TimerStopped
	s.TimerCarryMillis = 0
	s.touch(now)
	return nil
}

func (s *State) ExtendTimer(deltaSeconds int, now time.Time) {
	carry := s.fold(now)
	s.RemainingSeconds += deltaSeconds
	if s.RemainingSeconds < 0 {
		s.RemainingSeconds = 0
	}
	if s.TimerStatus == TimerRunning {
		s.anchor(now, carry)
		return
	}
	s.touch(now)
}

func (s *State) SetEncounterTotal(total int) error {
	if total < 0 {
		return ErrInvalidTotal
	}
	s.EncounterTotal = total
	if s.EncounterCurrent > total {
		s.EncounterCurrent = total
	}
	return nil
}

func (s *State) AdvanceEncounter(step int) error {
	if step != 1 && step != -1 {
		return ErrInvalidStep
	}
	next := s.EncounterCurrent + step
	if next < 0 {
		next = 0
	}
	if next > s.EncounterTotal {
		next = s.EncounterTotal
	}
	s.EncounterCurrent = next
	return nil
}

func (s *State) OpenRoll(die, prompt, target, roundID string) error {
	if !ValidDie(die) {
		return ErrInvalidDie
	}
	target = strings.TrimSpace(target)
	if target == "" {
		target = TargetAll
	}
	if target != TargetAll {
		if _, err := uuid.Parse(target); err != nil {
			return ErrInvalidTarget
		}
	}
	if roundID == "" || roundID == s.RollRoundID {
		return ErrInvalidRound
	}
	s.RollOpen = true
	s.RollDie = die
	s.RollPrompt = strings.TrimSpace(prompt)
	s.RollTarget = target
	s.RollRoundID = roundID
	if s.RollResults == nil {
		s.RollResults = make(map[string]RollResult)
	}
	return nil
}

func (s *State) CloseRoll() {
	s.RollOpen = false
	s.RollDie = ""
	s.RollPrompt = ""
}

func (s *State) SetRollMode(playerID string, mode RollMode) error {
	if mode != ModePlayer && mode != ModeDigital {
		return ErrInvalidMode
	}
	if s.RollModes == nil {
		s.RollModes = make(map[string]RollMode)
	}
	s.RollModes[playerID] = mode
	return nil
}

func (s *State) PresentBlock(blockID string) {
	s.PresentedBlockID = blockID
}

func (s *State) ClearPresented() {
	s.PresentedBlockID = ""
}

// SubmitRollResult records the first result a player gives for the open
// round. Any rejection leaves the state untouched.
func (s *State) SubmitRollResult(playerID string, value int, source RollSource, now time.Time) error {
	switch source {
	case SourceManual, SourceDigital, SourcePlayer:
	default:
		return ErrInvalidSource
	}
	if !s.RollOpen {
		return ErrRollClosed
	}
	if !s.TargetsPlayer(playerID) {
		return ErrNotTargeted
	}
	mode := s.ModeFor(playerID)
	if (source == SourcePlayer && mode != ModePlayer) || (source == SourceDigital && mode != ModeDigital) {
		return ErrWrongRollMode
	}
	if _, ok := s.CurrentResult(playerID); ok {
		return ErrAlreadySubmitted
	}
	sides, _ := Sides(s.RollDie)
	if value < 1 || (sides > 0 && value > sides) {
		return ErrInvalidRoll
	}
	if s.RollResults == nil {
		s.RollResults = make(map[string]RollResult)
	}
	s.RollResults[playerID] = RollResult{
		Value:       value,
		Source:      source,
		RoundID:     s.RollRoundID,
		SubmittedAt: now.UTC(),
	}
	return nil
}

// Countdown is the displayed remaining time: a running timer counts down from
// its UpdatedAt anchor, any other status shows RemainingSeconds verbatim.
func Countdown(s State, now time.Time) int {
	if s.TimerStatus != TimerRunning {
		if s.RemainingSeconds < 0 {
			return 0
		}
		return s.RemainingSeconds
	}
	elapsed := now.Sub(s.UpdatedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := s.RemainingSeconds - int(math.Floor(elapsed.Seconds()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// EncounterPercent returns false when no encounter total is set.
func EncounterPercent(s State) (int, bool) {
	if s.EncounterTotal <= 0 {
		return 0, false
	}
	return int(math.Round(100 * float64(s.EncounterCurrent) / float64(s.EncounterTotal))), true
}
