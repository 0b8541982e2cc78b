package live

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Affordance string

const (
	AffordanceNone       Affordance = "none"
	AffordanceInput      Affordance = "input"
	AffordanceRollButton Affordance = "roll_button"
	AffordanceSubmitted  Affordance = "submitted"
)

type RollView struct {
	Affordance Affordance `json:"affordance"`
	Die        string     `json:"die,omitempty"`
	Prompt     string     `json:"prompt,omitempty"`
	Value      int        `json:"value,omitempty"`
	Source     RollSource `json:"source,omitempty"`
	Mode       RollMode   `json:"mode"`
}

// View is what a client renders from the current mirror.
type View struct {
	RemainingSeconds int      `json:"remaining_seconds"`
	TimerStatus      string   `json:"timer_status"`
	EncounterPercent *int     `json:"encounter_percent"`
	Roll             RollView `json:"roll"`
	PresentedBlockID string   `json:"presented_block_id,omitempty"`
}

// RollEligibility decides which roll control a player sees. It is computed
// from the state alone so a mode change or a closed roll never leaves a stale
// pending input behind.
func RollEligibility(s State, playerID string) RollView {
	view := RollView{
		Affordance: AffordanceNone,
		Mode:       s.ModeFor(playerID),
	}
	if result, ok := s.CurrentResult(playerID); ok {
		view.Affordance = AffordanceSubmitted
		view.Value = result.Value
		view.Source = result.Source
		return view
	}
	if !s.RollOpen || playerID == "" || !s.TargetsPlayer(playerID) {
		return view
	}
	view.Die = s.RollDie
	view.Prompt = s.RollPrompt
	if view.Mode == ModeDigital && s.RollDie != "" {
		view.Affordance = AffordanceRollButton
		return view
	}
	view.Affordance = AffordanceInput
	return view
}

func Project(s State, playerID string, now time.Time) View {
	view := View{
		RemainingSeconds: Countdown(s, now),
		TimerStatus:      string(s.TimerStatus),
		Roll:             RollEligibility(s, playerID),
		PresentedBlockID: s.PresentedBlockID,
	}
	if pct, ok := EncounterPercent(s); ok {
		view.EncounterPercent = &pct
	}
	return view
}

// Projector keeps one client's mirror of a session row.
type Projector struct {
	mu        sync.Mutex
	sessionID string
	playerID  string
	clock     clockwork.Clock
	state     State
	loaded    bool
	applied   uint64
	skew      time.Duration
	presented string
}

func NewProjector(sessionID, playerID string, clock clockwork.Clock) *Projector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Projector{
		sessionID: sessionID,
		playerID:  playerID,
		clock:     clock,
	}
}

// Load fetches the row once so a client that connects before any change
// event still has state to render.
func (p *Projector) Load(ctx context.Context, store Store) (State, error) {
	state, err := store.Get(ctx, p.sessionID)
	if err != nil {
		return State{}, err
	}
	p.Apply(state, time.Time{})
	return state, nil
}

// Apply replaces the whole mirror with snapshot and reports whether the
// presented block changed. A zero serverTime keeps the previous skew.
func (p *Projector) Apply(snapshot State, serverTime time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.apply(snapshot, serverTime)
}

func (p *Projector) apply(snapshot State, serverTime time.Time) bool {
	p.state = snapshot.Clone()
	p.loaded = true
	p.applied++
	if !serverTime.IsZero() {
		p.skew = serverTime.Sub(p.clock.Now())
	}
	changed := snapshot.PresentedBlockID != p.presented
	p.presented = snapshot.PresentedBlockID
	return changed
}

func (p *Projector) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func (p *Projector) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Now is the client clock corrected by the last observed server skew.
func (p *Projector) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock.Now().Add(p.skew)
}

func (p *Projector) View() View {
	now := p.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	return Project(p.state, p.playerID, now)
}

// Subscribe registers with source before reading the row, so a write that
// lands in between is either in the read or delivered as a snapshot. A
// snapshot that arrives while the read is in flight wins over the read. The
// returned func must be called on teardown.
func (p *Projector) Subscribe(ctx context.Context, store Store, source Source, onView func(View, bool)) (func(), error) {
	p.mu.Lock()
	seen := p.applied
	p.mu.Unlock()

	unsubscribe := source.Subscribe(p.sessionID, func(snapshot State) {
		changed := p.Apply(snapshot, time.Time{})
		onView(p.View(), changed)
	})
	state, err := store.Get(ctx, p.sessionID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	p.mu.Lock()
	if p.applied == seen {
		p.apply(state, time.Time{})
	}
	p.mu.Unlock()
	return unsubscribe, nil
}
