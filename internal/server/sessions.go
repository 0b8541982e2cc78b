package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"sync"
	"time"

	"neweyes-online/internal/db"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const flashCookieName = "ne_session"

// sessionStore keeps one-shot flash messages for HTML redirects, keyed by a
// browser cookie. Without a database they live in memory.
type sessionStore struct {
	db       *gorm.DB
	mu       sync.Mutex
	sessions map[string]string
}

func newSessionStore(conn *gorm.DB) *sessionStore {
	return &sessionStore{
		db:       conn,
		sessions: make(map[string]string),
	}
}

func (s *sessionStore) SetFlash(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		return
	}
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		s.sessions[id] = message
		s.mu.Unlock()
		return
	}
	record := db.WebSession{
		ID:    id,
		Flash: message,
	}
	if err := s.db.WithContext(r.Context()).Save(&record).Error; err != nil {
		log.Error().Err(err).Msg("save flash failed")
	}
}

func (s *sessionStore) PopFlash(w http.ResponseWriter, r *http.Request) string {
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		message := s.sessions[id]
		delete(s.sessions, id)
		return message
	}
	var record db.WebSession
	if err := s.db.WithContext(r.Context()).Where("id = ?", id).First(&record).Error; err != nil {
		return ""
	}
	if record.Flash == "" {
		return ""
	}
	message := record.Flash
	record.Flash = ""
	_ = s.db.WithContext(r.Context()).Save(&record).Error
	return message
}

func (s *sessionStore) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := newSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}
