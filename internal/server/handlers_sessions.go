package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type createSessionRequest struct {
	Name      string `json:"name" binding:"required,name"`
	EpisodeID string `json:"episode_id" binding:"omitempty,uuid"`
}

type joinCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type announcementRequest struct {
	Text string `json:"text" binding:"max=2000"`
}

const joinCodeAttempts = 5

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if !bindJSON(c, &req, bindMessages{
		"Name":      {"required": "name is required", "name": "name must be 80 characters or fewer"},
		"EpisodeID": {"uuid": "episode_id must be a uuid"},
	}, "") {
		return
	}
	identity, _ := auth.IdentityFrom(c)
	name, _ := validateName(req.Name)
	session, err := s.createSession(c.Request.Context(), identity.UserID, name, req.EpisodeID)
	if err != nil {
		writeError(c, err)
		return
	}
	log.Info().
		Str("session_id", session.ID).
		Str("join_code", session.JoinCode).
		Str("player_id", identity.UserID).
		Msg("session created")
	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"join_code":  session.JoinCode,
	})
}

func (s *Server) createSession(ctx context.Context, storytellerID, name, episodeID string) (db.Session, error) {
	session := db.Session{
		ID:            uuid.NewString(),
		Name:          name,
		StorytellerID: storytellerID,
	}
	if episodeID != "" {
		if _, err := s.dir.Episode(ctx, episodeID); err != nil {
			return db.Session{}, err
		}
		session.EpisodeID = &episodeID
	}
	state := live.NewState(session.ID, s.cfg.DefaultTimerSeconds, s.clock.Now())
	var err error
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		session.JoinCode = newJoinCode()
		if err = s.dir.CreateSession(ctx, &session, state); err == nil {
			return session, nil
		}
		if _, lookupErr := s.dir.SessionByCode(ctx, session.JoinCode); lookupErr != nil {
			break
		}
	}
	return db.Session{}, err
}

// handleGetSession returns the session and its live row to the storyteller
// or a joined player.
func (s *Server) handleGetSession(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	session, err := s.dir.Session(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	storyteller, player, err := s.sessionRole(c, session)
	if err != nil {
		writeError(c, err)
		return
	}
	if !storyteller && !player {
		forbidden(c)
		return
	}
	state, err := s.live.State(c.Request.Context(), session.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	identity, _ := auth.IdentityFrom(c)
	playerID := identity.UserID
	if storyteller {
		playerID = ""
	}
	c.JSON(http.StatusOK, gin.H{
		"session":     session,
		"state":       state,
		"view":        live.Project(state, playerID, s.clock.Now()),
		"server_time": s.clock.Now().UTC(),
	})
}

func (s *Server) handleJoinByCode(c *gin.Context) {
	var req joinCodeRequest
	if !bindJSON(c, &req, bindMessages{"Code": {"required": "code is required"}}, "") {
		return
	}
	identity, _ := auth.IdentityFrom(c)
	session, err := s.joinByCode(c.Request.Context(), req.Code, identity.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID})
}

func (s *Server) joinByCode(ctx context.Context, code, playerID string) (db.Session, error) {
	code = normalizeCode(code)
	if len(code) != joinCodeLength || strings.Trim(code, joinCodeAlphabet) != "" {
		return db.Session{}, db.ErrNotFound
	}
	session, err := s.dir.SessionByCode(ctx, code)
	if err != nil {
		return db.Session{}, err
	}
	if err := s.dir.JoinSession(ctx, session.ID, playerID); err != nil {
		return db.Session{}, err
	}
	log.Info().Str("session_id", session.ID).Str("player_id", playerID).Msg("player joined")
	return session, nil
}

func (s *Server) handleJoinSession(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	session, err := s.dir.Session(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	identity, _ := auth.IdentityFrom(c)
	if err := s.dir.JoinSession(c.Request.Context(), session.ID, identity.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID})
}

func (s *Server) handleAnnouncement(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	var req announcementRequest
	if !bindJSON(c, &req, bindMessages{"Text": {"max": "announcement must be 2000 characters or fewer"}}, "") {
		return
	}
	session, err := s.dir.Session(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !canRun(c, session) {
		writeError(c, errNotStoryteller)
		return
	}
	text := strings.TrimSpace(req.Text)
	if !isSafeAnnouncement(text) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "announcement contains unsupported characters"})
		return
	}
	if err := s.dir.UpdateAnnouncement(c.Request.Context(), session.ID, text); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcement": text})
}

func isSafeAnnouncement(text string) bool {
	return isSafeText(strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(text))
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound) || errors.Is(err, live.ErrSessionNotFound)
}
