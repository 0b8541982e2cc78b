package server

import (
	"context"
	"errors"
	"net/http"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	profileKey = "profile"
	sessionKey = "session"
)

// loadProfile resolves the signed-in user's profile, creating it on first
// sight. Ids listed in ADMIN_USER_IDS are promoted to admin.
func (s *Server) loadProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFrom(c)
		if !ok {
			c.Next()
			return
		}
		profile, err := s.ensureProfile(c.Request.Context(), identity)
		if err != nil {
			log.Warn().Err(err).Str("player_id", identity.UserID).Msg("profile lookup failed")
		} else {
			c.Set(profileKey, profile)
		}
		c.Next()
	}
}

func (s *Server) ensureProfile(ctx context.Context, identity auth.Identity) (db.Profile, error) {
	profile, err := s.dir.Profile(ctx, identity.UserID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return db.Profile{}, err
	}
	if errors.Is(err, db.ErrNotFound) {
		profile = db.Profile{ID: identity.UserID}
	}
	changed := profile.CreatedAt.IsZero()
	if name := normalizeText(identity.Name); name != "" && name != profile.DisplayName {
		profile.DisplayName = name
		changed = true
	}
	if s.admins[identity.UserID] && !profile.IsAdmin {
		profile.IsAdmin = true
		changed = true
	}
	if changed {
		if err := s.dir.SaveProfile(ctx, &profile); err != nil {
			return db.Profile{}, err
		}
	}
	return profile, nil
}

func profileFrom(c *gin.Context) (db.Profile, bool) {
	value, ok := c.Get(profileKey)
	if !ok {
		return db.Profile{}, false
	}
	profile, ok := value.(db.Profile)
	return profile, ok
}

func isAdmin(c *gin.Context) bool {
	profile, ok := profileFrom(c)
	return ok && profile.IsAdmin
}

// canRun reports whether the caller may drive the session's controls.
func canRun(c *gin.Context, session db.Session) bool {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return false
	}
	return isAdmin(c) || session.StorytellerID == identity.UserID
}

func (s *Server) requireAdminPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			s.redirectWithFlash(c, "/", "Admin access required.")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) requireAdminAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			writeError(c, errAdminOnly)
			return
		}
		c.Next()
	}
}

// requireStoryteller loads the session named in the path and aborts unless
// the caller runs it.
func (s *Server) requireStoryteller() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri idURI
		if !bindURI(c, &uri) {
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
		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) db.Session {
	value, _ := c.Get(sessionKey)
	session, _ := value.(db.Session)
	return session
}

// sessionRole reports whether the caller runs the session or has joined it.
func (s *Server) sessionRole(c *gin.Context, session db.Session) (storyteller bool, player bool, err error) {
	if canRun(c, session) {
		return true, false, nil
	}
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return false, false, auth.ErrMissingToken
	}
	joined, err := s.dir.IsPlayer(c.Request.Context(), session.ID, identity.UserID)
	if err != nil {
		return false, false, err
	}
	return false, joined, nil
}

func forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errNotPlayer.Error()})
}
