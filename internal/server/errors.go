package server

import (
	"errors"
	"net/http"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"
	"neweyes-online/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	errNotStoryteller = errors.New("only the session's storyteller can do that")
	errNotPlayer      = errors.New("join the session first")
	errAdminOnly      = errors.New("admin access required")
	errInvalidID      = errors.New("invalid id")
)

// statusFor maps domain errors onto HTTP statuses. Anything unrecognised is
// a store failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidID),
		errors.Is(err, live.ErrInvalidRoll),
		errors.Is(err, live.ErrInvalidDie),
		errors.Is(err, live.ErrInvalidTarget),
		errors.Is(err, live.ErrInvalidStep),
		errors.Is(err, live.ErrInvalidTotal),
		errors.Is(err, live.ErrInvalidDuration),
		errors.Is(err, live.ErrInvalidSource),
		errors.Is(err, live.ErrInvalidMode),
		errors.Is(err, live.ErrInvalidRound),
		errors.Is(err, live.ErrBlockNotInScope),
		errors.Is(err, live.ErrBlockPrivate),
		errors.Is(err, storage.ErrUnsupportedImage),
		errors.Is(err, storage.ErrImageTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errNotStoryteller), errors.Is(err, errNotPlayer), errors.Is(err, errAdminOnly):
		return http.StatusForbidden
	case errors.Is(err, db.ErrNotFound),
		errors.Is(err, live.ErrSessionNotFound),
		errors.Is(err, live.ErrBlockNotFound):
		return http.StatusNotFound
	case errors.Is(err, live.ErrRollClosed),
		errors.Is(err, live.ErrAlreadySubmitted),
		errors.Is(err, live.ErrNotTargeted),
		errors.Is(err, live.ErrWrongRollMode):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
