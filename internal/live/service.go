package live

import (
	"context"
	"fmt"

	"neweyes-online/internal/metrics"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Publisher receives every snapshot written by the service.
type Publisher interface {
	Publish(ctx context.Context, state State) error
}

// BlockScope confirms a block may be pushed to a session's players.
type BlockScope interface {
	CheckPresentable(ctx context.Context, sessionID, blockID string) error
}

type Service struct {
	store      Store
	blocks     BlockScope
	publisher  Publisher
	clock      clockwork.Clock
	roll       Roller
	newRoundID func() string
}

type Option func(*Service)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithRoller(roll Roller) Option {
	return func(s *Service) { s.roll = roll }
}

func WithRoundIDs(next func() string) Option {
	return func(s *Service) { s.newRoundID = next }
}

// WithPublisher makes the service push each written row itself. Leave it
// unset when a database change feed already delivers the rows.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(store Store, blocks BlockScope, opts ...Option) *Service {
	s := &Service{
		store:      store,
		blocks:     blocks,
		clock:      clockwork.NewRealClock(),
		roll:       DefaultRoller,
		newRoundID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Clock() clockwork.Clock {
	return s.clock
}

func (s *Service) State(ctx context.Context, sessionID string) (State, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *Service) mutate(ctx context.Context, op, sessionID string, fn func(*State) error) (State, error) {
	state, err := s.store.Update(ctx, sessionID, fn)
	metrics.ObserveMutation(op, err)
	if err != nil {
		return State{}, err
	}
	log.Info().Str("session_id", sessionID).Str("op", op).Msg("session state updated")
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, state); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("publish session state failed")
		}
	}
	return state, nil
}

func (s *Service) StartTimer(ctx context.Context, sessionID string) (State, error) {
	return s.mutate(ctx, "timer_start", sessionID, func(st *State) error {
		st.StartTimer(s.clock.Now())
		return nil
	})
}

func (s *Service) PauseTimer(ctx context.Context, sessionID string) (State, error) {
	return s.mutate(ctx, "timer_pause", sessionID, func(st *State) error {
		st.PauseTimer(s.clock.Now())
		return nil
	})
}

func (s *Service) ResetTimer(ctx context.Context, sessionID string) (State, error) {
	return s.mutate(ctx, "timer_reset", sessionID, func(st *State) error {
		st.ResetTimer(s.clock.Now())
		return nil
	})
}

func (s *Service) SetTimerDuration(ctx context.Context, sessionID string, seconds int) (State, error) {
	return s.mutate(ctx, "timer_duration", sessionID, func(st *State) error {
		return st.SetTimerDuration(seconds, s.clock.Now())
	})
}

func (s *Service) ExtendTimer(ctx context.Context, sessionID string, deltaSeconds int) (State, error) {
	return s.mutate(ctx, "timer_extend", sessionID, func(st *State) error {
		st.ExtendTimer(deltaSeconds, s.clock.Now())
		return nil
	})
}

func (s *Service) SetEncounterTotal(ctx context.Context, sessionID string, total int) (State, error) {
	return s.mutate(ctx, "encounter_total", sessionID, func(st *State) error {
		return st.SetEncounterTotal(total)
	})
}

func (s *Service) AdvanceEncounter(ctx context.Context, sessionID string, step int) (State, error) {
	return s.mutate(ctx, "encounter_advance", sessionID, func(st *State) error {
		return st.AdvanceEncounter(step)
	})
}

func (s *Service) OpenRoll(ctx context.Context, sessionID, die, prompt, target string) (State, error) {
	return s.mutate(ctx, "roll_open", sessionID, func(st *State) error {
		roundID := s.newRoundID()
		if roundID == st.RollRoundID {
			roundID = uuid.NewString()
		}
		return st.OpenRoll(die, prompt, target, roundID)
	})
}

func (s *Service) CloseRoll(ctx context.Context, sessionID string) (State, error) {
	return s.mutate(ctx, "roll_close", sessionID, func(st *State) error {
		st.CloseRoll()
		return nil
	})
}

func (s *Service) SetRollMode(ctx context.Context, sessionID, playerID string, mode RollMode) (State, error) {
	return s.mutate(ctx, "roll_mode", sessionID, func(st *State) error {
		return st.SetRollMode(playerID, mode)
	})
}

func (s *Service) SubmitRollResult(ctx context.Context, sessionID, playerID string, value int, source RollSource) (State, error) {
	return s.mutate(ctx, "roll_submit", sessionID, func(st *State) error {
		return st.SubmitRollResult(playerID, value, source, s.clock.Now())
	})
}

// RollDigital rolls the open round's die on the server for the player.
func (s *Service) RollDigital(ctx context.Context, sessionID, playerID string) (State, error) {
	return s.mutate(ctx, "roll_digital", sessionID, func(st *State) error {
		if !st.RollOpen {
			return ErrRollClosed
		}
		sides, _ := Sides(st.RollDie)
		if sides == 0 {
			return fmt.Errorf("digital roll needs a die: %w", ErrInvalidDie)
		}
		return st.SubmitRollResult(playerID, s.roll(sides), SourceDigital, s.clock.Now())
	})
}

func (s *Service) PresentBlock(ctx context.Context, sessionID, blockID string) (State, error) {
	if s.blocks == nil {
		return State{}, ErrBlockNotFound
	}
	if err := s.blocks.CheckPresentable(ctx, sessionID, blockID); err != nil {
		metrics.ObserveMutation("present", err)
		return State{}, err
	}
	return s.mutate(ctx, "present", sessionID, func(st *State) error {
		st.PresentBlock(blockID)
		return nil
	})
}

func (s *Service) ClearPresented(ctx context.Context, sessionID string) (State, error) {
	return s.mutate(ctx, "present_clear", sessionID, func(st *State) error {
		st.ClearPresented()
		return nil
	})
}
