package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neweyes-online/internal/content"
	"neweyes-online/internal/live"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// Repository holds the authoring and session queries behind the web handlers.
type Repository struct {
	conn *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{conn: conn}
}

func (r *Repository) Profile(ctx context.Context, id string) (Profile, error) {
	var profile Profile
	err := r.conn.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	return profile, notFound(err)
}

func (r *Repository) SaveProfile(ctx context.Context, profile *Profile) error {
	return r.conn.WithContext(ctx).Save(profile).Error
}

var countable = map[string]any{
	"episodes": &Episode{},
	"npcs":     &NPC{},
	"items":    &Item{},
	"sessions": &Session{},
}

// Count returns the row count of one of the dashboard tables.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	model, ok := countable[table]
	if !ok {
		return 0, fmt.Errorf("count: unknown table %q", table)
	}
	var total int64
	err := r.conn.WithContext(ctx).Model(model).Count(&total).Error
	return total, err
}

func (r *Repository) ListEpisodes(ctx context.Context) ([]Episode, error) {
	var episodes []Episode
	err := r.conn.WithContext(ctx).Order("created_at desc").Find(&episodes).Error
	return episodes, err
}

func (r *Repository) Episode(ctx context.Context, id string) (Episode, error) {
	var episode Episode
	err := r.conn.WithContext(ctx).Where("id = ?", id).First(&episode).Error
	return episode, notFound(err)
}

func (r *Repository) CreateEpisode(ctx context.Context, episode *Episode) error {
	return r.conn.WithContext(ctx).Create(episode).Error
}

func (r *Repository) UpdateEpisode(ctx context.Context, id, title, summary string) error {
	result := r.conn.WithContext(ctx).Model(&Episode{}).Where("id = ?", id).
		Updates(map[string]any{"title": title, "summary": summary, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteEpisode(ctx context.Context, id string) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("episode_id = ?", id).Delete(&EpisodeBlock{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&Episode{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListBlocks returns an episode's blocks in display order.
func (r *Repository) ListBlocks(ctx context.Context, episodeID string) ([]EpisodeBlock, error) {
	var blocks []EpisodeBlock
	err := r.conn.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("sort_order asc").Order("id asc").
		Find(&blocks).Error
	return blocks, err
}

func (r *Repository) Block(ctx context.Context, id string) (EpisodeBlock, error) {
	var block EpisodeBlock
	err := r.conn.WithContext(ctx).Where("id = ?", id).First(&block).Error
	return block, notFound(err)
}

// CreateBlock appends the block after the current maximum sort_order of its
// episode.
func (r *Repository) CreateBlock(ctx context.Context, block *EpisodeBlock) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Episode{}).Where("id = ?", block.EpisodeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		var orders []int
		if err := tx.Model(&EpisodeBlock{}).Where("episode_id = ?", block.EpisodeID).Pluck("sort_order", &orders).Error; err != nil {
			return err
		}
		block.SortOrder = content.NextSortOrder(orders)
		return tx.Create(block).Error
	})
}

func (r *Repository) UpdateBlock(ctx context.Context, block EpisodeBlock) error {
	result := r.conn.WithContext(ctx).Model(&EpisodeBlock{}).Where("id = ?", block.ID).
		Updates(map[string]any{
			"type":       block.Type,
			"audience":   block.Audience,
			"mode":       block.Mode,
			"title":      block.Title,
			"body":       block.Body,
			"metadata":   block.Metadata,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetBlockImage(ctx context.Context, id, key string) error {
	result := r.conn.WithContext(ctx).Model(&EpisodeBlock{}).Where("id = ?", id).
		Updates(map[string]any{"image_key": key, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteBlock(ctx context.Context, id string) error {
	result := r.conn.WithContext(ctx).Where("id = ?", id).Delete(&EpisodeBlock{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MoveBlock swaps sort_order with the nearest sibling in the given direction.
// Moving past either end leaves the episode unchanged.
func (r *Repository) MoveBlock(ctx context.Context, id, direction string) (EpisodeBlock, error) {
	var moved EpisodeBlock
	err := r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&moved).Error; err != nil {
			return notFound(err)
		}
		var siblings []content.Ordered
		if err := tx.Model(&EpisodeBlock{}).
			Select("id", "type", "sort_order").
			Where("episode_id = ?", moved.EpisodeID).
			Scan(&siblings).Error; err != nil {
			return err
		}
		current, neighbor, ok := content.SwapTarget(siblings, id, direction)
		if !ok {
			return nil
		}
		if err := tx.Model(&EpisodeBlock{}).Where("id = ?", current.ID).Update("sort_order", neighbor.SortOrder).Error; err != nil {
			return err
		}
		if err := tx.Model(&EpisodeBlock{}).Where("id = ?", neighbor.ID).Update("sort_order", current.SortOrder).Error; err != nil {
			return err
		}
		moved.SortOrder = neighbor.SortOrder
		return nil
	})
	return moved, err
}

func (r *Repository) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	err := r.conn.WithContext(ctx).Order("created_at desc").Find(&sessions).Error
	return sessions, err
}

func (r *Repository) Session(ctx context.Context, id string) (Session, error) {
	var session Session
	err := r.conn.WithContext(ctx).Where("id = ?", id).First(&session).Error
	return session, notFound(err)
}

func (r *Repository) SessionByCode(ctx context.Context, code string) (Session, error) {
	var session Session
	err := r.conn.WithContext(ctx).Where("join_code = ?", code).First(&session).Error
	return session, notFound(err)
}

// CreateSession writes the session together with its initial live row.
func (r *Repository) CreateSession(ctx context.Context, session *Session, state live.State) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		row := sessionStateRow(state)
		row.SessionID = session.ID
		return tx.Create(&row).Error
	})
}

func (r *Repository) UpdateAnnouncement(ctx context.Context, sessionID, text string) error {
	result := r.conn.WithContext(ctx).Model(&Session{}).Where("id = ?", sessionID).
		Updates(map[string]any{"announcement": text, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// JoinSession records the player; joining a session twice succeeds.
func (r *Repository) JoinSession(ctx context.Context, sessionID, playerID string) error {
	err := r.conn.WithContext(ctx).Create(&SessionPlayer{
		SessionID: sessionID,
		PlayerID:  playerID,
		JoinedAt:  time.Now().UTC(),
	}).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (r *Repository) IsPlayer(ctx context.Context, sessionID, playerID string) (bool, error) {
	var count int64
	err := r.conn.WithContext(ctx).Model(&SessionPlayer{}).
		Where("session_id = ? AND player_id = ?", sessionID, playerID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListPlayers(ctx context.Context, sessionID string) ([]SessionPlayer, error) {
	var players []SessionPlayer
	err := r.conn.WithContext(ctx).Where("session_id = ?", sessionID).Order("joined_at asc").Find(&players).Error
	return players, err
}

// CheckPresentable is the block scope check used before a block is pushed to
// a session's players.
func (r *Repository) CheckPresentable(ctx context.Context, sessionID, blockID string) error {
	session, err := r.Session(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return live.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	block, err := r.Block(ctx, blockID)
	if errors.Is(err, ErrNotFound) {
		return live.ErrBlockNotFound
	}
	if err != nil {
		return err
	}
	return BlockScope(session, block)
}

// BlockScope reports whether block may be presented in session.
func BlockScope(session Session, block EpisodeBlock) error {
	if session.EpisodeID == nil || *session.EpisodeID != block.EpisodeID {
		return live.ErrBlockNotInScope
	}
	if block.Audience == content.AudienceStoryteller {
		return live.ErrBlockPrivate
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
