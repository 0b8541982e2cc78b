package server

import (
	"context"
	"net/http"
	"strconv"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/content"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"
	"neweyes-online/internal/metrics"
	"neweyes-online/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const unavailable = "—"

var dashboardTiles = []struct {
	table string
	label string
	href  string
}{
	{"episodes", "Episodes", "/admin/episodes"},
	{"npcs", "NPCs", "/api/library/npcs"},
	{"items", "Items", "/api/library/items"},
	{"sessions", "Sessions", "/"},
}

func (s *Server) handleHome(c *gin.Context) {
	ctx := c.Request.Context()
	data := web.DashboardData{
		Flash: s.sessions.PopFlash(c.Writer, c.Request),
		Tiles: s.dashboardTiles(ctx),
	}
	identity, signedIn := auth.IdentityFrom(c)
	data.SignedIn = signedIn
	data.IsAdmin = isAdmin(c)
	if profile, ok := profileFrom(c); ok {
		data.UserName = profile.DisplayName
	}
	if data.UserName == "" {
		data.UserName = identity.Name
	}

	if signedIn {
		episodes, err := s.dir.ListEpisodes(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("list episodes for dashboard failed")
			metrics.ObserveDegradedRead("episodes")
		}
		titles := make(map[string]string, len(episodes))
		for _, episode := range episodes {
			titles[episode.ID] = episode.Title
			data.Episodes = append(data.Episodes, episodeSummary(episode))
		}
		data.CanCreate = true

		sessions, err := s.dir.ListSessions(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("list sessions for dashboard failed")
			metrics.ObserveDegradedRead("sessions")
		}
		for _, session := range sessions {
			summary := web.SessionSummary{
				ID:       session.ID,
				Name:     session.Name,
				JoinCode: session.JoinCode,
				CanRun:   canRun(c, session),
			}
			if session.EpisodeID != nil {
				summary.Episode = titles[*session.EpisodeID]
			}
			if !summary.CanRun {
				summary.JoinCode = ""
			}
			data.Sessions = append(data.Sessions, summary)
		}
	}
	render(c, web.Home(data))
}

// dashboardTiles never fails the page: a count that cannot be read renders
// as a dash.
func (s *Server) dashboardTiles(ctx context.Context) []web.Tile {
	tiles := make([]web.Tile, 0, len(dashboardTiles))
	for _, tile := range dashboardTiles {
		value := unavailable
		if count, err := s.count(ctx, tile.table); err != nil {
			log.Warn().Err(err).Str("table", tile.table).Msg("dashboard count failed")
			metrics.ObserveDegradedRead(tile.table)
		} else {
			value = strconv.FormatInt(count, 10)
		}
		tiles = append(tiles, web.Tile{Label: tile.label, Value: value, Href: tile.href})
	}
	return tiles
}

func (s *Server) count(ctx context.Context, table string) (int64, error) {
	if cached, ok, err := s.counts.Get(ctx, table); err != nil {
		log.Warn().Err(err).Str("table", table).Msg("count cache read failed")
	} else if ok {
		return cached, nil
	}
	count, err := s.dir.Count(ctx, table)
	if err != nil {
		return 0, err
	}
	if err := s.counts.Set(ctx, table, count); err != nil {
		log.Warn().Err(err).Str("table", table).Msg("count cache write failed")
	}
	return count, nil
}

func (s *Server) handleJoinView(c *gin.Context) {
	render(c, web.JoinView(web.JoinData{
		Flash: s.sessions.PopFlash(c.Writer, c.Request),
		Code:  normalizeCode(c.Query("code")),
	}))
}

func (s *Server) handleJoinForm(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		s.redirectWithFlash(c, "/", "Sign in to join a session.")
		return
	}
	code := c.PostForm("code")
	session, err := s.joinByCode(c.Request.Context(), code, identity.UserID)
	if err != nil {
		message := "Could not join that session."
		if isNotFound(err) {
			message = "No session uses that code."
		} else {
			log.Error().Err(err).Str("player_id", identity.UserID).Msg("join failed")
		}
		c.Status(http.StatusOK)
		render(c, web.JoinView(web.JoinData{Code: normalizeCode(code), Error: message}))
		return
	}
	c.Redirect(http.StatusFound, "/play/"+session.ID)
}

func (s *Server) handlePlayerView(c *gin.Context) {
	session, ok := s.pageSession(c)
	if !ok {
		return
	}
	storyteller, player, err := s.sessionRole(c, session)
	if err != nil || (!player && !storyteller) {
		s.redirectWithFlash(c, "/join", "Join the session with its code first.")
		return
	}
	identity, _ := auth.IdentityFrom(c)
	render(c, web.PlayerView(web.PlayerPageData{
		SessionID:    session.ID,
		SessionName:  session.Name,
		Announcement: session.Announcement,
		PlayerID:     identity.UserID,
		PlayerName:   identity.Name,
	}))
}

func (s *Server) handleStorytellerView(c *gin.Context) {
	session, ok := s.pageSession(c)
	if !ok {
		return
	}
	if !canRun(c, session) {
		s.redirectWithFlash(c, "/", "Only the storyteller can run that session.")
		return
	}
	ctx := c.Request.Context()
	data := web.StorytellerPageData{
		Flash:        s.sessions.PopFlash(c.Writer, c.Request),
		SessionID:    session.ID,
		SessionName:  session.Name,
		JoinCode:     session.JoinCode,
		Announcement: session.Announcement,
		Dice:         live.Dice,
		ExtendBy:     s.cfg.TimerExtendSeconds,
	}
	players, err := s.dir.ListPlayers(ctx, session.ID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("list players failed")
		metrics.ObserveDegradedRead("players")
	}
	for _, player := range players {
		data.Players = append(data.Players, player.PlayerID)
	}
	if session.EpisodeID != nil {
		blocks, err := s.dir.ListBlocks(ctx, *session.EpisodeID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("list blocks failed")
			metrics.ObserveDegradedRead("blocks")
		}
		data.Groups = s.blockGroups(blocks)
	}
	render(c, web.StorytellerView(data))
}

// pageSession resolves /:id for HTML pages, redirecting home with a flash
// when the session is missing or the caller is signed out.
func (s *Server) pageSession(c *gin.Context) (db.Session, bool) {
	if _, ok := auth.IdentityFrom(c); !ok {
		s.redirectWithFlash(c, "/", "Sign in to continue.")
		return db.Session{}, false
	}
	id := c.Param("id")
	if !validUUID(id) {
		s.redirectWithFlash(c, "/", "Session not found.")
		return db.Session{}, false
	}
	session, err := s.dir.Session(c.Request.Context(), id)
	if err != nil {
		if !isNotFound(err) {
			log.Error().Err(err).Str("session_id", id).Msg("load session failed")
		}
		s.redirectWithFlash(c, "/", "Session not found.")
		return db.Session{}, false
	}
	return session, true
}

func episodeSummary(episode db.Episode) web.EpisodeSummary {
	return web.EpisodeSummary{
		ID:        episode.ID,
		Title:     episode.Title,
		Summary:   episode.Summary,
		UpdatedAt: episode.UpdatedAt,
	}
}

func (s *Server) blockView(block db.EpisodeBlock) web.BlockView {
	view := web.BlockView{
		ID:        block.ID,
		Type:      block.Type,
		Title:     block.Title,
		Body:      block.Body,
		Audience:  block.Audience,
		Mode:      block.Mode,
		SortOrder: block.SortOrder,
		Metadata:  content.FormatMetadata(block.Metadata),
	}
	if block.ImageKey != "" {
		view.ImageURL = s.images.URL(block.ImageKey)
	}
	if msg, ok := block.Metadata[content.MetaErrorKey].(string); ok {
		view.MetaError = msg
	}
	return view
}

func (s *Server) blockGroups(blocks []db.EpisodeBlock) []web.BlockGroup {
	groups := content.GroupByScene(blocks, func(b db.EpisodeBlock) string { return b.Type })
	out := make([]web.BlockGroup, 0, len(groups))
	for _, group := range groups {
		view := web.BlockGroup{Blocks: make([]web.BlockView, 0, len(group.Blocks))}
		if group.Scene != nil {
			scene := s.blockView(*group.Scene)
			view.Scene = &scene
		}
		for _, block := range group.Blocks {
			view.Blocks = append(view.Blocks, s.blockView(block))
		}
		out = append(out, view)
	}
	return out
}
