package db

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxChannelLength is Postgres' identifier limit; longer LISTEN names are
// truncated by the server and would never match pg_notify.
const maxChannelLength = 63

var ErrInvalidChannel = errors.New("notify channel must be 1-63 bytes")

// notifyTriggerSQL returns the statements that announce every session_state
// write on channel with the session id as payload.
func notifyTriggerSQL(channel string) ([]string, error) {
	if channel == "" || len(channel) > maxChannelLength {
		return nil, ErrInvalidChannel
	}
	return []string{
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION notify_session_state_changed() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify(%s, NEW.session_id::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`, pq.QuoteLiteral(channel)),
		`DROP TRIGGER IF EXISTS session_state_changed ON session_state`,
		`CREATE TRIGGER session_state_changed
    AFTER INSERT OR UPDATE ON session_state
    FOR EACH ROW EXECUTE FUNCTION notify_session_state_changed()`,
	}, nil
}

// InstallNotifyTrigger (re)creates the session_state change trigger so it
// notifies the channel the listener subscribes to.
func InstallNotifyTrigger(conn *gorm.DB, channel string) error {
	if conn == nil {
		return errors.New("db connection is nil")
	}
	stmts, err := notifyTriggerSQL(channel)
	if err != nil {
		return err
	}
	err = conn.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("install notify trigger: %w", err)
	}
	log.Info().Str("channel", channel).Msg("session state trigger installed")
	return nil
}
