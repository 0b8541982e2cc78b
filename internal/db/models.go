package db

import (
	"time"

	"neweyes-online/internal/live"

	"gorm.io/datatypes"
)

type Profile struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	DisplayName string    `gorm:"size:64;not null;default:''"`
	IsAdmin     bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type Episode struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	Title     string         `gorm:"size:140;not null" json:"title"`
	Summary   string         `gorm:"type:text;not null;default:''" json:"summary"`
	CreatedBy *string        `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	Blocks    []EpisodeBlock `json:"-"`
}

// EpisodeBlock is one ordered content unit. sort_order is intentionally not
// unique per episode.
type EpisodeBlock struct {
	ID        string            `gorm:"primaryKey;type:uuid" json:"id"`
	EpisodeID string            `gorm:"type:uuid;index:idx_episode_blocks_order;not null" json:"episode_id"`
	Type      string            `gorm:"size:32;not null" json:"type"`
	SortOrder int               `gorm:"index:idx_episode_blocks_order;not null" json:"sort_order"`
	Audience  string            `gorm:"size:16;not null;default:'both'" json:"audience"`
	Mode      string            `gorm:"size:16;not null;default:'display'" json:"mode"`
	Title     string            `gorm:"size:140;not null;default:''" json:"title"`
	Body      string            `gorm:"type:text;not null;default:''" json:"body"`
	ImageKey  string            `gorm:"size:255;not null;default:''" json:"image_key"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

type NPC struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string    `gorm:"size:80;not null" json:"name"`
	Description  string    `gorm:"type:text;not null;default:''" json:"description"`
	Strength     int       `gorm:"not null;default:10" json:"str"`
	Dexterity    int       `gorm:"not null;default:10" json:"dex"`
	Constitution int       `gorm:"not null;default:10" json:"con"`
	Intelligence int       `gorm:"not null;default:10" json:"int"`
	Wisdom       int       `gorm:"not null;default:10" json:"wis"`
	Charisma     int       `gorm:"not null;default:10" json:"cha"`
	ArmorClass   int       `gorm:"not null;default:10" json:"armor_class"`
	HitPoints    int       `gorm:"not null;default:1" json:"hit_points"`
	ImageKey     string    `gorm:"size:255;not null;default:''" json:"image_key"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
	Traits       []Trait   `gorm:"foreignKey:NPCID" json:"traits,omitempty"`
	Actions      []Action  `gorm:"foreignKey:NPCID" json:"actions,omitempty"`
}

func (NPC) TableName() string { return "npcs" }

type Trait struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	NPCID       string    `gorm:"column:npc_id;type:uuid;index;not null" json:"npc_id"`
	Name        string    `gorm:"size:80;not null" json:"name"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

type Action struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	NPCID       string    `gorm:"column:npc_id;type:uuid;index;not null" json:"npc_id"`
	Name        string    `gorm:"size:80;not null" json:"name"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	AttackBonus int       `gorm:"not null;default:0" json:"attack_bonus"`
	Damage      string    `gorm:"size:32;not null;default:''" json:"damage"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

type Item struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string       `gorm:"size:80;not null" json:"name"`
	Description string       `gorm:"type:text;not null;default:''" json:"description"`
	Rarity      string       `gorm:"size:32;not null;default:'common'" json:"rarity"`
	ImageKey    string       `gorm:"size:255;not null;default:''" json:"image_key"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
	Effects     []ItemEffect `json:"effects,omitempty"`
}

type ItemEffect struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	ItemID      string    `gorm:"type:uuid;index;not null" json:"item_id"`
	Name        string    `gorm:"size:80;not null" json:"name"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	Modifier    int       `gorm:"not null;default:0" json:"modifier"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

type Session struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name          string    `gorm:"size:80;not null" json:"name"`
	JoinCode      string    `gorm:"size:12;uniqueIndex;not null" json:"join_code"`
	Announcement  string    `gorm:"type:text;not null;default:''" json:"announcement"`
	EpisodeID     *string   `gorm:"type:uuid;index" json:"episode_id,omitempty"`
	StorytellerID string    `gorm:"type:uuid;index;not null" json:"storyteller_id"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// SessionState is the single live row per session. Every column change is
// announced on the configured notify channel by a database trigger.
type SessionState struct {
	SessionID        string                                          `gorm:"primaryKey;type:uuid"`
	TimerStatus      string                                          `gorm:"size:16;not null;default:'stopped'"`
	DurationSeconds  int                                             `gorm:"not null;default:0"`
	RemainingSeconds int                                             `gorm:"not null;default:0"`
	TimerCarryMs     int                                             `gorm:"column:timer_carry_ms;not null;default:0"`
	UpdatedAt        time.Time                                       `gorm:"not null;autoUpdateTime:false"`
	EncounterCurrent int                                             `gorm:"not null;default:0"`
	EncounterTotal   int                                             `gorm:"not null;default:0"`
	RollOpen         bool                                            `gorm:"not null;default:false"`
	RollDie          *string                                         `gorm:"size:8"`
	RollPrompt       string                                          `gorm:"type:text;not null;default:''"`
	RollTarget       string                                          `gorm:"size:64;not null;default:'all'"`
	RollRoundID      string                                          `gorm:"size:64;not null;default:''"`
	RollResults      datatypes.JSONType[map[string]live.RollResult] `gorm:"type:jsonb;not null;default:'{}'"`
	RollModes        datatypes.JSONType[map[string]live.RollMode]   `gorm:"type:jsonb;not null;default:'{}'"`
	PresentedBlockID *string                                         `gorm:"type:uuid"`
}

func (SessionState) TableName() string { return "session_state" }

type SessionPlayer struct {
	SessionID string    `gorm:"type:uuid;primaryKey"`
	PlayerID  string    `gorm:"type:uuid;primaryKey"`
	JoinedAt  time.Time `gorm:"not null"`
}

// ToLive converts the row into the value the live package works with; SQL
// nulls become empty strings.
func (r SessionState) ToLive() live.State {
	state := live.State{
		SessionID:        r.SessionID,
		TimerStatus:      live.TimerStatus(r.TimerStatus),
		DurationSeconds:  r.DurationSeconds,
		RemainingSeconds: r.RemainingSeconds,
		TimerCarryMillis: r.TimerCarryMs,
		UpdatedAt:        r.UpdatedAt.UTC(),
		EncounterCurrent: r.EncounterCurrent,
		EncounterTotal:   r.EncounterTotal,
		RollOpen:         r.RollOpen,
		RollPrompt:       r.RollPrompt,
		RollTarget:       r.RollTarget,
		RollRoundID:      r.RollRoundID,
		RollResults:      r.RollResults.Data(),
		RollModes:        r.RollModes.Data(),
	}
	if r.RollDie != nil {
		state.RollDie = *r.RollDie
	}
	if r.PresentedBlockID != nil {
		state.PresentedBlockID = *r.PresentedBlockID
	}
	return state.Clone()
}

func sessionStateRow(s live.State) SessionState {
	row := SessionState{
		SessionID:        s.SessionID,
		TimerStatus:      string(s.TimerStatus),
		DurationSeconds:  s.DurationSeconds,
		RemainingSeconds: s.RemainingSeconds,
		TimerCarryMs:     s.TimerCarryMillis,
		UpdatedAt:        s.UpdatedAt.UTC(),
		EncounterCurrent: s.EncounterCurrent,
		EncounterTotal:   s.EncounterTotal,
		RollOpen:         s.RollOpen,
		RollPrompt:       s.RollPrompt,
		RollTarget:       s.RollTarget,
		RollRoundID:      s.RollRoundID,
		RollResults:      datatypes.NewJSONType(nonNilResults(s.RollResults)),
		RollModes:        datatypes.NewJSONType(nonNilModes(s.RollModes)),
	}
	if s.RollDie != "" {
		die := s.RollDie
		row.RollDie = &die
	}
	if s.PresentedBlockID != "" {
		id := s.PresentedBlockID
		row.PresentedBlockID = &id
	}
	return row
}

func nonNilResults(in map[string]live.RollResult) map[string]live.RollResult {
	if in == nil {
		return map[string]live.RollResult{}
	}
	return in
}

func nonNilModes(in map[string]live.RollMode) map[string]live.RollMode {
	if in == nil {
		return map[string]live.RollMode{}
	}
	return in
}
