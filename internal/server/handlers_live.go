package server

import (
	"net/http"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/live"

	"github.com/gin-gonic/gin"
)

type extendRequest struct {
	Seconds *int `json:"seconds"`
}

type durationRequest struct {
	Seconds *int `json:"seconds" binding:"required,min=0"`
}

type encounterTotalRequest struct {
	Total *int `json:"total" binding:"required,min=0"`
}

type encounterAdvanceRequest struct {
	Step int `json:"step" binding:"required,oneof=1 -1"`
}

type rollOpenRequest struct {
	Die    string `json:"die" binding:"die"`
	Prompt string `json:"prompt" binding:"max=280"`
	Target string `json:"target" binding:"target"`
}

type rollModeRequest struct {
	PlayerID string `json:"player_id" binding:"required,uuid"`
	Mode     string `json:"mode" binding:"required,rollmode"`
}

type rollResultRequest struct {
	Value    int    `json:"value" binding:"required"`
	PlayerID string `json:"player_id" binding:"omitempty,uuid"`
}

type presentRequest struct {
	BlockID string `json:"block_id" binding:"required,uuid"`
}

// respondState writes the row a mutator produced, or maps its error.
func respondState(c *gin.Context, state live.State, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (s *Server) handleTimerStart(c *gin.Context) {
	state, err := s.live.StartTimer(c.Request.Context(), sessionFrom(c).ID)
	respondState(c, state, err)
}

func (s *Server) handleTimerPause(c *gin.Context) {
	state, err := s.live.PauseTimer(c.Request.Context(), sessionFrom(c).ID)
	respondState(c, state, err)
}

func (s *Server) handleTimerReset(c *gin.Context) {
	state, err := s.live.ResetTimer(c.Request.Context(), sessionFrom(c).ID)
	respondState(c, state, err)
}

// handleTimerExtend adds TIMER_EXTEND_SECONDS unless the body names another
// delta; negative deltas shorten the timer.
func (s *Server) handleTimerExtend(c *gin.Context) {
	var req extendRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req, nil, "seconds must be a whole number") {
			return
		}
	}
	delta := s.cfg.TimerExtendSeconds
	if delta <= 0 {
		delta = live.DefaultExtendSeconds
	}
	if req.Seconds != nil {
		delta = *req.Seconds
	}
	state, err := s.live.ExtendTimer(c.Request.Context(), sessionFrom(c).ID, delta)
	respondState(c, state, err)
}

func (s *Server) handleTimerDuration(c *gin.Context) {
	var req durationRequest
	if !bindJSON(c, &req, bindMessages{
		"Seconds": {"required": "seconds is required", "min": live.ErrInvalidDuration.Error()},
	}, "") {
		return
	}
	state, err := s.live.SetTimerDuration(c.Request.Context(), sessionFrom(c).ID, *req.Seconds)
	respondState(c, state, err)
}

func (s *Server) handleEncounterTotal(c *gin.Context) {
	var req encounterTotalRequest
	if !bindJSON(c, &req, bindMessages{
		"Total": {"required": "total is required", "min": live.ErrInvalidTotal.Error()},
	}, "") {
		return
	}
	state, err := s.live.SetEncounterTotal(c.Request.Context(), sessionFrom(c).ID, *req.Total)
	respondState(c, state, err)
}

func (s *Server) handleEncounterAdvance(c *gin.Context) {
	var req encounterAdvanceRequest
	if !bindJSON(c, &req, nil, live.ErrInvalidStep.Error()) {
		return
	}
	state, err := s.live.AdvanceEncounter(c.Request.Context(), sessionFrom(c).ID, req.Step)
	respondState(c, state, err)
}

func (s *Server) handleRollOpen(c *gin.Context) {
	var req rollOpenRequest
	if !bindJSON(c, &req, bindMessages{
		"Die":    {"die": live.ErrInvalidDie.Error()},
		"Prompt": {"max": "prompt must be 280 characters or fewer"},
		"Target": {"target": live.ErrInvalidTarget.Error()},
	}, "") {
		return
	}
	target := req.Target
	if target == "" {
		target = live.TargetAll
	}
	state, err := s.live.OpenRoll(c.Request.Context(), sessionFrom(c).ID, req.Die, normalizeText(req.Prompt), target)
	respondState(c, state, err)
}

func (s *Server) handleRollClose(c *gin.Context) {
	state, err := s.live.CloseRoll(c.Request.Context(), sessionFrom(c).ID)
	respondState(c, state, err)
}

func (s *Server) handleRollMode(c *gin.Context) {
	var req rollModeRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required", "uuid": "player_id must be a uuid"},
		"Mode":     {"required": "mode is required", "rollmode": live.ErrInvalidMode.Error()},
	}, "") {
		return
	}
	state, err := s.live.SetRollMode(c.Request.Context(), sessionFrom(c).ID, req.PlayerID, live.RollMode(req.Mode))
	respondState(c, state, err)
}

// handleRollResult records a typed roll. Players submit their own value; the
// storyteller may enter one on a player's behalf, recorded as manual.
func (s *Server) handleRollResult(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	var req rollResultRequest
	if !bindJSON(c, &req, bindMessages{
		"Value":    {"required": live.ErrInvalidRoll.Error()},
		"PlayerID": {"uuid": "player_id must be a uuid"},
	}, "") {
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
	identity, _ := auth.IdentityFrom(c)
	playerID := identity.UserID
	source := live.SourcePlayer
	switch {
	case storyteller && req.PlayerID != "":
		playerID = req.PlayerID
		source = live.SourceManual
	case !player:
		forbidden(c)
		return
	}
	state, err := s.live.SubmitRollResult(c.Request.Context(), session.ID, playerID, req.Value, source)
	respondState(c, state, err)
}

func (s *Server) handleRollDigital(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	session, err := s.dir.Session(c.Request.Context(), uri.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	_, player, err := s.sessionRole(c, session)
	if err != nil {
		writeError(c, err)
		return
	}
	if !player {
		forbidden(c)
		return
	}
	identity, _ := auth.IdentityFrom(c)
	state, err := s.live.RollDigital(c.Request.Context(), session.ID, identity.UserID)
	respondState(c, state, err)
}

func (s *Server) handlePresent(c *gin.Context) {
	var req presentRequest
	if !bindJSON(c, &req, bindMessages{
		"BlockID": {"required": "block_id is required", "uuid": "block_id must be a uuid"},
	}, "") {
		return
	}
	state, err := s.live.PresentBlock(c.Request.Context(), sessionFrom(c).ID, req.BlockID)
	respondState(c, state, err)
}

func (s *Server) handleClearPresented(c *gin.Context) {
	state, err := s.live.ClearPresented(c.Request.Context(), sessionFrom(c).ID)
	respondState(c, state, err)
}
