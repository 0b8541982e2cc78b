package notify

import (
	"context"
	"fmt"
	"time"

	"neweyes-online/internal/live"
	"neweyes-online/internal/metrics"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string
	NotifyChannel    string
	FallbackInterval time.Duration
	PingInterval     time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "session_state_changed",
		FallbackInterval: 15 * time.Second,
		PingInterval:     90 * time.Second,
	}
}

// Listener turns session_state_changed notifications into full-row
// snapshots. The payload only carries the session id; the row is re-read so
// subscribers always receive the whole state.
type Listener struct {
	listener  *pq.Listener
	store     live.Store
	publisher live.Publisher
	active    func() []string
	cfg       ListenerConfig
}

// NewListener starts LISTEN on the configured channel. active reports the
// sessions with local subscribers; the fallback sweep re-publishes them to
// cover notifications lost while the connection was down.
func NewListener(store live.Store, publisher live.Publisher, active func() []string, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}
	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for notifications")
	return &Listener{
		listener:  l,
		store:     store,
		publisher: publisher,
		active:    active,
		cfg:       cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("listener started")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// reconnected; anything sent meanwhile is lost, so sweep now
				l.sweep(ctx)
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			l.sweep(ctx)
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid session id in notification: %w", err)
	}
	if err := l.republish(ctx, id.String()); err != nil {
		return err
	}
	metrics.ObserveNotification("notify")
	return nil
}

func (l *Listener) sweep(ctx context.Context) {
	if l.active == nil {
		return
	}
	for _, sessionID := range l.active() {
		if err := l.republish(ctx, sessionID); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("fallback publish failed")
			continue
		}
		metrics.ObserveNotification("fallback")
	}
}

func (l *Listener) republish(ctx context.Context, sessionID string) error {
	state, err := l.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read session state %s: %w", sessionID, err)
	}
	if err := l.publisher.Publish(ctx, state); err != nil {
		return fmt.Errorf("publish session state %s: %w", sessionID, err)
	}
	return nil
}
