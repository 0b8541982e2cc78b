package live

import (
	"errors"
	"time"
)

type TimerStatus string

const (
	TimerStopped TimerStatus = "stopped"
	TimerRunning TimerStatus = "running"
	TimerPaused  TimerStatus = "paused"
)

type RollSource string

const (
	SourceManual  RollSource = "manual"
	SourceDigital RollSource = "digital"
	SourcePlayer  RollSource = "player"
)

// RollMode is the storyteller's per-player choice of how a player answers a roll.
type RollMode string

const (
	ModePlayer  RollMode = "player"
	ModeDigital RollMode = "digital"
)

const (
	TargetAll            = "all"
	DefaultExtendSeconds = 300
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrRollClosed       = errors.New("roll is not open")
	ErrAlreadySubmitted = errors.New("roll already submitted for this round")
	ErrNotTargeted      = errors.New("roll is not targeted at this player")
	ErrInvalidRoll      = errors.New("roll value is out of range")
	ErrWrongRollMode    = errors.New("player's roll mode does not accept this entry")
	ErrInvalidDie       = errors.New("unsupported die")
	ErrInvalidTarget    = errors.New("roll target must be all or a player id")
	ErrInvalidStep      = errors.New("encounter step must be +1 or -1")
	ErrInvalidTotal     = errors.New("encounter total must be zero or more")
	ErrInvalidDuration  = errors.New("timer duration must be zero or more")
	ErrInvalidSource    = errors.New("unsupported roll source")
	ErrInvalidMode      = errors.New("unsupported roll mode")
	ErrInvalidRound     = errors.New("roll round id must change")
	ErrBlockNotFound    = errors.New("block not found")
	ErrBlockNotInScope  = errors.New("block does not belong to this session's episode")
	ErrBlockPrivate     = errors.New("storyteller-only blocks cannot be presented")
)

type RollResult struct {
	Value       int        `json:"value"`
	Source      RollSource `json:"source"`
	RoundID     string     `json:"round_id"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// State mirrors one session_state row. Empty strings stand in for SQL nulls
// on RollDie and PresentedBlockID.
type State struct {
	SessionID        string                `json:"session_id"`
	TimerStatus      TimerStatus           `json:"timer_status"`
	DurationSeconds  int                   `json:"duration_seconds"`
	RemainingSeconds int                   `json:"remaining_seconds"`
	TimerCarryMillis int                   `json:"timer_carry_ms"`
	UpdatedAt        time.Time             `json:"updated_at"`
	EncounterCurrent int                   `json:"encounter_current"`
	EncounterTotal   int                   `json:"encounter_total"`
	RollOpen         bool                  `json:"roll_open"`
	RollDie          string                `json:"roll_die"`
	RollPrompt       string                `json:"roll_prompt"`
	RollTarget       string                `json:"roll_target"`
	RollRoundID      string                `json:"roll_round_id"`
	RollResults      map[string]RollResult `json:"roll_results"`
	RollModes        map[string]RollMode   `json:"roll_modes"`
	PresentedBlockID string                `json:"presented_block_id"`
}

// NewState returns the row written when a storyteller starts a session.
func NewState(sessionID string, durationSeconds int, now time.Time) State {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return State{
		SessionID:        sessionID,
		TimerStatus:      TimerStopped,
		DurationSeconds:  durationSeconds,
		RemainingSeconds: durationSeconds,
		UpdatedAt:        now.UTC(),
		RollTarget:       TargetAll,
		RollResults:      make(map[string]RollResult),
		RollModes:        make(map[string]RollMode),
	}
}

// Clone deep-copies the maps so a snapshot handed to subscribers cannot be
// mutated by a later update.
func (s State) Clone() State {
	out := s
	out.RollResults = make(map[string]RollResult, len(s.RollResults))
	for k, v := range s.RollResults {
		out.RollResults[k] = v
	}
	out.RollModes = make(map[string]RollMode, len(s.RollModes))
	for k, v := range s.RollModes {
		out.RollModes[k] = v
	}
	return out
}

// CurrentResult returns the player's result for the active round. Entries
// left over from earlier rounds are reported as absent.
func (s State) CurrentResult(playerID string) (RollResult, bool) {
	if s.RollRoundID == "" {
		return RollResult{}, false
	}
	result, ok := s.RollResults[playerID]
	if !ok || result.RoundID != s.RollRoundID {
		return RollResult{}, false
	}
	return result, true
}

// ModeFor defaults to player entry when the storyteller has not chosen.
func (s State) ModeFor(playerID string) RollMode {
	if mode, ok := s.RollModes[playerID]; ok && mode != "" {
		return mode
	}
	return ModePlayer
}

func (s State) TargetsPlayer(playerID string) bool {
	return s.RollTarget == TargetAll || s.RollTarget == "" || s.RollTarget == playerID
}
