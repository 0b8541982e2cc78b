package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/content"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"
	"neweyes-online/internal/metrics"
	"neweyes-online/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type stateMessage struct {
	Type       string     `json:"type"`
	ServerTime time.Time  `json:"server_time"`
	State      live.State `json:"state"`
	View       live.View  `json:"view"`
}

type blockMessage struct {
	Type  string         `json:"type"`
	Block *web.BlockView `json:"block"`
}

// liveConn is one browser subscribed to a session. Writes are serialised
// because snapshots arrive on the publisher's goroutine.
type liveConn struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	server    *Server
	session   db.Session
	projector *live.Projector
}

// write sends one message; callers hold l.mu.
func (l *liveConn) write(payload any) error {
	_ = l.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return l.conn.WriteJSON(payload)
}

// push sends the projector's current mirror, then the presented block when
// it changed. The message is built under the lock so the latest applied
// snapshot is the one written.
func (l *liveConn) push(ctx context.Context, presentedChanged bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeSnapshot(ctx, presentedChanged)
}

func (l *liveConn) writeSnapshot(ctx context.Context, withBlock bool) error {
	state := l.projector.State()
	if err := l.write(stateMessage{
		Type:       "state",
		ServerTime: l.server.clock.Now().UTC(),
		State:      state,
		View:       l.projector.View(),
	}); err != nil {
		return err
	}
	if !withBlock {
		return nil
	}
	return l.write(l.blockMessage(ctx, state.PresentedBlockID))
}

// blockMessage resolves the presented block, or a clear when no block is
// presented.
func (l *liveConn) blockMessage(ctx context.Context, blockID string) blockMessage {
	msg := blockMessage{Type: "block"}
	if blockID == "" {
		return msg
	}
	block, err := l.server.dir.Block(ctx, blockID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", l.session.ID).Str("block_id", blockID).Msg("presented block lookup failed")
		metrics.ObserveDegradedRead("presented_block")
		return msg
	}
	if block.Audience != content.AudienceStoryteller {
		view := l.server.blockView(block)
		msg.Block = &view
	}
	return msg
}

func (s *Server) handleSessionSocket(c *gin.Context) {
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
	identity, _ := auth.IdentityFrom(c)
	playerID := identity.UserID
	if storyteller {
		playerID = ""
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()
	defer conn.Close()
	log.Info().Str("session_id", session.ID).Str("player_id", identity.UserID).Bool("storyteller", storyteller).Msg("ws connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lc := &liveConn{
		conn:      conn,
		server:    s,
		session:   session,
		projector: live.NewProjector(session.ID, playerID, s.clock),
	}

	// Hold the write lock until the initial snapshot is out so a concurrent
	// change cannot overtake it.
	lc.mu.Lock()
	unsubscribe, err := lc.projector.Subscribe(ctx, s.states, s.hub, func(_ live.View, presentedChanged bool) {
		if err := lc.push(ctx, presentedChanged); err != nil {
			log.Debug().Err(err).Str("session_id", session.ID).Msg("ws push failed")
		}
	})
	if err != nil {
		lc.mu.Unlock()
		log.Error().Err(err).Str("session_id", session.ID).Msg("ws initial load failed")
		return
	}
	defer unsubscribe()
	err = lc.writeSnapshot(ctx, true)
	lc.mu.Unlock()
	if err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Info().Err(err).Str("session_id", session.ID).Msg("ws disconnected")
			return
		}
	}
}
