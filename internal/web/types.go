package web

import "time"

type Tile struct {
	Label string
	Value string
	Href  string
}

type SessionSummary struct {
	ID       string
	Name     string
	JoinCode string
	Episode  string
	CanRun   bool
}

type DashboardData struct {
	Flash     string
	UserName  string
	SignedIn  bool
	IsAdmin   bool
	Tiles     []Tile
	Sessions  []SessionSummary
	Episodes  []EpisodeSummary
	CanCreate bool
}

type JoinData struct {
	Flash string
	Code  string
	Error string
}

type EpisodeSummary struct {
	ID        string
	Title     string
	Summary   string
	UpdatedAt time.Time
}

type BlockView struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Audience  string `json:"audience"`
	Mode      string `json:"mode"`
	ImageURL  string `json:"image_url,omitempty"`
	SortOrder int    `json:"sort_order"`
	Metadata  string `json:"-"`
	MetaError string `json:"-"`
}

type BlockGroup struct {
	Scene  *BlockView
	Blocks []BlockView
}

type EpisodeEditorData struct {
	Flash     string
	Error     string
	Episode   EpisodeSummary
	Groups    []BlockGroup
	Types     []string
	Audiences []string
	Modes     []string
}

type EpisodeListData struct {
	Flash    string
	Error    string
	Episodes []EpisodeSummary
}

type PlayerPageData struct {
	SessionID    string
	SessionName  string
	Announcement string
	PlayerID     string
	PlayerName   string
}

type StorytellerPageData struct {
	Flash        string
	SessionID    string
	SessionName  string
	JoinCode     string
	Announcement string
	Players      []string
	Groups       []BlockGroup
	Dice         []string
	ExtendBy     int
}
