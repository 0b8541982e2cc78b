package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"neweyes-online/internal/live"
	"neweyes-online/internal/metrics"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const SubjectPrefix = "neweyes.session_state"

func Subject(sessionID string) string {
	return SubjectPrefix + "." + sessionID
}

// ConnectNATS dials with unlimited reconnects and logs connection changes.
func ConnectNATS(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("neweyes-online"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSPublisher fans snapshots out to every web instance.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) Publish(_ context.Context, state live.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.nc.Publish(Subject(state.SessionID), data)
}

// NATSSubscriber feeds snapshots from the bus into a local publisher,
// normally the in-process hub.
type NATSSubscriber struct {
	sub *nats.Subscription
}

func NewNATSSubscriber(nc *nats.Conn, target live.Publisher) (*NATSSubscriber, error) {
	sub, err := nc.Subscribe(SubjectPrefix+".*", func(msg *nats.Msg) {
		state, err := decodeSnapshot(msg.Subject, msg.Data)
		if err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("dropping session state message")
			return
		}
		if err := target.Publish(context.Background(), state); err != nil {
			log.Error().Err(err).Str("session_id", state.SessionID).Msg("local fan-out failed")
			return
		}
		metrics.ObserveNotification("nats")
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", SubjectPrefix, err)
	}
	return &NATSSubscriber{sub: sub}, nil
}

func (s *NATSSubscriber) Close() error {
	return s.sub.Unsubscribe()
}

func decodeSnapshot(subject string, data []byte) (live.State, error) {
	var state live.State
	if err := json.Unmarshal(data, &state); err != nil {
		return live.State{}, err
	}
	sessionID := strings.TrimPrefix(subject, SubjectPrefix+".")
	if state.SessionID != sessionID {
		return live.State{}, fmt.Errorf("snapshot for %q published on %q", state.SessionID, subject)
	}
	return state.Clone(), nil
}
