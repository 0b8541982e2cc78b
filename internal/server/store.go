package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"neweyes-online/internal/content"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"
)

// Directory is the authoring and session catalogue behind the handlers.
// db.Repository implements it against Postgres; memoryDirectory backs
// development runs without a database and the handler tests.
type Directory interface {
	live.BlockScope

	Profile(ctx context.Context, id string) (db.Profile, error)
	SaveProfile(ctx context.Context, profile *db.Profile) error
	Count(ctx context.Context, table string) (int64, error)

	ListEpisodes(ctx context.Context) ([]db.Episode, error)
	Episode(ctx context.Context, id string) (db.Episode, error)
	CreateEpisode(ctx context.Context, episode *db.Episode) error
	UpdateEpisode(ctx context.Context, id, title, summary string) error
	DeleteEpisode(ctx context.Context, id string) error

	ListBlocks(ctx context.Context, episodeID string) ([]db.EpisodeBlock, error)
	Block(ctx context.Context, id string) (db.EpisodeBlock, error)
	CreateBlock(ctx context.Context, block *db.EpisodeBlock) error
	UpdateBlock(ctx context.Context, block db.EpisodeBlock) error
	SetBlockImage(ctx context.Context, id, key string) error
	DeleteBlock(ctx context.Context, id string) error
	MoveBlock(ctx context.Context, id, direction string) (db.EpisodeBlock, error)

	ListSessions(ctx context.Context) ([]db.Session, error)
	Session(ctx context.Context, id string) (db.Session, error)
	SessionByCode(ctx context.Context, code string) (db.Session, error)
	CreateSession(ctx context.Context, session *db.Session, state live.State) error
	UpdateAnnouncement(ctx context.Context, sessionID, text string) error

	JoinSession(ctx context.Context, sessionID, playerID string) error
	IsPlayer(ctx context.Context, sessionID, playerID string) (bool, error)
	ListPlayers(ctx context.Context, sessionID string) ([]db.SessionPlayer, error)
}

type memoryDirectory struct {
	mu       sync.Mutex
	states   *live.MemoryStore
	library  *Library
	profiles map[string]db.Profile
	episodes map[string]db.Episode
	blocks   map[string]db.EpisodeBlock
	sessions map[string]db.Session
	players  map[string][]db.SessionPlayer
}

func newMemoryDirectory(states *live.MemoryStore, library *Library) *memoryDirectory {
	return &memoryDirectory{
		states:   states,
		library:  library,
		profiles: make(map[string]db.Profile),
		episodes: make(map[string]db.Episode),
		blocks:   make(map[string]db.EpisodeBlock),
		sessions: make(map[string]db.Session),
		players:  make(map[string][]db.SessionPlayer),
	}
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}

func (m *memoryDirectory) Profile(_ context.Context, id string) (db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return db.Profile{}, db.ErrNotFound
	}
	return profile, nil
}

func (m *memoryDirectory) SaveProfile(_ context.Context, profile *db.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := timeNowUTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *memoryDirectory) Count(ctx context.Context, table string) (int64, error) {
	switch table {
	case "npcs":
		npcs, err := m.library.NPCs.List(ctx, "")
		return int64(len(npcs)), err
	case "items":
		items, err := m.library.Items.List(ctx, "")
		return int64(len(items)), err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch table {
	case "episodes":
		return int64(len(m.episodes)), nil
	case "sessions":
		return int64(len(m.sessions)), nil
	}
	return 0, fmt.Errorf("count: unknown table %q", table)
}

func (m *memoryDirectory) ListEpisodes(_ context.Context) ([]db.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	episodes := make([]db.Episode, 0, len(m.episodes))
	for _, episode := range m.episodes {
		episodes = append(episodes, episode)
	}
	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].CreatedAt.After(episodes[j].CreatedAt)
	})
	return episodes, nil
}

func (m *memoryDirectory) Episode(_ context.Context, id string) (db.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	episode, ok := m.episodes[id]
	if !ok {
		return db.Episode{}, db.ErrNotFound
	}
	return episode, nil
}

func (m *memoryDirectory) CreateEpisode(_ context.Context, episode *db.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := timeNowUTC()
	episode.CreatedAt = now
	episode.UpdatedAt = now
	m.episodes[episode.ID] = *episode
	return nil
}

func (m *memoryDirectory) UpdateEpisode(_ context.Context, id, title, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	episode, ok := m.episodes[id]
	if !ok {
		return db.ErrNotFound
	}
	episode.Title = title
	episode.Summary = summary
	episode.UpdatedAt = timeNowUTC()
	m.episodes[id] = episode
	return nil
}

func (m *memoryDirectory) DeleteEpisode(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.episodes[id]; !ok {
		return db.ErrNotFound
	}
	for blockID, block := range m.blocks {
		if block.EpisodeID == id {
			delete(m.blocks, blockID)
		}
	}
	delete(m.episodes, id)
	return nil
}

func (m *memoryDirectory) ListBlocks(_ context.Context, episodeID string) ([]db.EpisodeBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocksOf(episodeID), nil
}

// blocksOf returns an episode's blocks ordered like the SQL query: sort_order
// then id. Callers hold m.mu.
func (m *memoryDirectory) blocksOf(episodeID string) []db.EpisodeBlock {
	blocks := make([]db.EpisodeBlock, 0)
	for _, block := range m.blocks {
		if block.EpisodeID == episodeID {
			blocks = append(blocks, block)
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].SortOrder != blocks[j].SortOrder {
			return blocks[i].SortOrder < blocks[j].SortOrder
		}
		return blocks[i].ID < blocks[j].ID
	})
	return blocks
}

func (m *memoryDirectory) Block(_ context.Context, id string) (db.EpisodeBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	block, ok := m.blocks[id]
	if !ok {
		return db.EpisodeBlock{}, db.ErrNotFound
	}
	return block, nil
}

func (m *memoryDirectory) CreateBlock(_ context.Context, block *db.EpisodeBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.episodes[block.EpisodeID]; !ok {
		return db.ErrNotFound
	}
	siblings := m.blocksOf(block.EpisodeID)
	orders := make([]int, 0, len(siblings))
	for _, sibling := range siblings {
		orders = append(orders, sibling.SortOrder)
	}
	block.SortOrder = content.NextSortOrder(orders)
	now := timeNowUTC()
	block.CreatedAt = now
	block.UpdatedAt = now
	m.blocks[block.ID] = *block
	return nil
}

func (m *memoryDirectory) UpdateBlock(_ context.Context, block db.EpisodeBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.blocks[block.ID]
	if !ok {
		return db.ErrNotFound
	}
	current.Type = block.Type
	current.Audience = block.Audience
	current.Mode = block.Mode
	current.Title = block.Title
	current.Body = block.Body
	current.Metadata = block.Metadata
	current.UpdatedAt = timeNowUTC()
	m.blocks[block.ID] = current
	return nil
}

func (m *memoryDirectory) SetBlockImage(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	block, ok := m.blocks[id]
	if !ok {
		return db.ErrNotFound
	}
	block.ImageKey = key
	block.UpdatedAt = timeNowUTC()
	m.blocks[id] = block
	return nil
}

func (m *memoryDirectory) DeleteBlock(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.blocks, id)
	return nil
}

func (m *memoryDirectory) MoveBlock(_ context.Context, id, direction string) (db.EpisodeBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	moved, ok := m.blocks[id]
	if !ok {
		return db.EpisodeBlock{}, db.ErrNotFound
	}
	siblings := m.blocksOf(moved.EpisodeID)
	ordered := make([]content.Ordered, 0, len(siblings))
	for _, sibling := range siblings {
		ordered = append(ordered, content.Ordered{ID: sibling.ID, Type: sibling.Type, SortOrder: sibling.SortOrder})
	}
	current, neighbor, ok := content.SwapTarget(ordered, id, direction)
	if !ok {
		return moved, nil
	}
	other := m.blocks[neighbor.ID]
	other.SortOrder = current.SortOrder
	m.blocks[neighbor.ID] = other
	moved.SortOrder = neighbor.SortOrder
	m.blocks[id] = moved
	return moved, nil
}

func (m *memoryDirectory) ListSessions(_ context.Context) ([]db.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]db.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (m *memoryDirectory) Session(_ context.Context, id string) (db.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return db.Session{}, db.ErrNotFound
	}
	return session, nil
}

func (m *memoryDirectory) SessionByCode(_ context.Context, code string) (db.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.JoinCode == code {
			return session, nil
		}
	}
	return db.Session{}, db.ErrNotFound
}

func (m *memoryDirectory) CreateSession(ctx context.Context, session *db.Session, state live.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.JoinCode == session.JoinCode {
			return fmt.Errorf("join code %s already in use", session.JoinCode)
		}
	}
	now := timeNowUTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	state.SessionID = session.ID
	if err := m.states.Create(ctx, state); err != nil {
		return err
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memoryDirectory) UpdateAnnouncement(_ context.Context, sessionID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return db.ErrNotFound
	}
	session.Announcement = text
	session.UpdatedAt = timeNowUTC()
	m.sessions[sessionID] = session
	return nil
}

func (m *memoryDirectory) JoinSession(_ context.Context, sessionID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return db.ErrNotFound
	}
	for _, player := range m.players[sessionID] {
		if player.PlayerID == playerID {
			return nil
		}
	}
	m.players[sessionID] = append(m.players[sessionID], db.SessionPlayer{
		SessionID: sessionID,
		PlayerID:  playerID,
		JoinedAt:  timeNowUTC(),
	})
	return nil
}

func (m *memoryDirectory) IsPlayer(_ context.Context, sessionID, playerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, player := range m.players[sessionID] {
		if player.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryDirectory) ListPlayers(_ context.Context, sessionID string) ([]db.SessionPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	players := make([]db.SessionPlayer, len(m.players[sessionID]))
	copy(players, m.players[sessionID])
	return players, nil
}

func (m *memoryDirectory) CheckPresentable(_ context.Context, sessionID, blockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return live.ErrSessionNotFound
	}
	block, ok := m.blocks[blockID]
	if !ok {
		return live.ErrBlockNotFound
	}
	return db.BlockScope(session, block)
}
