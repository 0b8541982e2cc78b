package server

import (
	"net/http"
	"time"

	"neweyes-online/internal/auth"
	"neweyes-online/internal/cache"
	"neweyes-online/internal/config"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"
	"neweyes-online/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Server struct {
	cfg      config.Config
	dir      Directory
	library  *Library
	live     *live.Service
	states   live.Store
	hub      *live.Hub
	auth     *auth.Verifier
	images   *storage.Images
	counts   cache.CountCache
	sessions *sessionStore
	clock    clockwork.Clock
	admins   map[string]bool
}

type Option func(*options)

type options struct {
	images *storage.Images
	counts cache.CountCache
	clock  clockwork.Clock
	roller live.Roller
}

func WithImages(images *storage.Images) Option {
	return func(o *options) { o.images = images }
}

func WithCountCache(counts cache.CountCache) Option {
	return func(o *options) { o.counts = counts }
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithRoller(roller live.Roller) Option {
	return func(o *options) { o.roller = roller }
}

// New wires the server against Postgres, or against in-memory stores when
// conn is nil. With a database the service does not publish snapshots
// itself; the change listener started by the caller does.
func New(conn *gorm.DB, cfg config.Config, opts ...Option) *Server {
	o := options{
		counts: cache.Noop{},
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.images == nil {
		o.images = storage.NewImages(storage.NewLocalProvider(cfg.StorageLocalRoot), cfg.StoragePublicBaseURL)
	}

	s := &Server{
		cfg:      cfg,
		hub:      live.NewHub(),
		auth:     auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthCookieName),
		images:   o.images,
		counts:   o.counts,
		sessions: newSessionStore(conn),
		clock:    o.clock,
		admins:   make(map[string]bool, len(cfg.AdminUserIDs)),
	}
	for _, id := range cfg.AdminUserIDs {
		s.admins[id] = true
	}

	serviceOpts := []live.Option{live.WithClock(o.clock)}
	if o.roller != nil {
		serviceOpts = append(serviceOpts, live.WithRoller(o.roller))
	}
	if conn == nil {
		states := live.NewMemoryStore()
		library := newMemoryLibrary()
		s.states = states
		s.library = library
		s.dir = newMemoryDirectory(states, library)
		serviceOpts = append(serviceOpts, live.WithPublisher(s.hub))
	} else {
		s.states = db.NewStateStore(conn)
		s.library = newDBLibrary(conn)
		s.dir = db.NewRepository(conn)
	}
	s.live = live.NewService(s.states, s.dir, serviceOpts...)
	return s
}

// Hub is the in-process fan-out the change listener publishes into.
func (s *Server) Hub() *live.Hub {
	return s.hub
}

func (s *Server) States() live.Store {
	return s.states
}

func (s *Server) Verifier() *auth.Verifier {
	return s.auth
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), s.corsMiddleware(), s.auth.Middleware(), s.loadProfile())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "neweyes-online"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/static", "static")
	if s.cfg.StorageProvider == "" || s.cfg.StorageProvider == "local" {
		router.Static("/uploads", s.cfg.StorageLocalRoot)
	}

	router.GET("/", s.handleHome)
	router.GET("/join", s.handleJoinView)
	router.POST("/join", s.handleJoinForm)
	router.GET("/play/:id", s.handlePlayerView)
	router.GET("/run/:id", s.handleStorytellerView)
	router.GET("/ws/sessions/:id", auth.RequireUser(), s.handleSessionSocket)

	admin := router.Group("/admin", s.requireAdminPage())
	admin.GET("/episodes", s.handleAdminEpisodes)
	admin.POST("/episodes", s.handleAdminEpisodeCreate)
	admin.GET("/episodes/:id", s.handleAdminEpisodeView)
	admin.POST("/episodes/:id", s.handleAdminEpisodeUpdate)
	admin.POST("/episodes/:id/delete", s.handleAdminEpisodeDelete)
	admin.POST("/episodes/:id/blocks", s.handleAdminBlockCreate)
	admin.POST("/blocks/:id/update", s.handleAdminBlockUpdate)
	admin.POST("/blocks/:id/move", s.handleAdminBlockMove)
	admin.POST("/blocks/:id/image", s.handleAdminBlockImage)
	admin.POST("/blocks/:id/delete", s.handleAdminBlockDelete)

	api := router.Group("/api", auth.RequireUser())
	api.POST("/join", s.handleJoinByCode)
	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions/:id", s.handleGetSession)
	api.POST("/sessions/:id/join", s.handleJoinSession)
	api.POST("/sessions/:id/announcement", s.handleAnnouncement)
	api.POST("/sessions/:id/roll/results", s.handleRollResult)
	api.POST("/sessions/:id/roll/digital", s.handleRollDigital)

	control := api.Group("/sessions/:id", s.requireStoryteller())
	control.POST("/timer/start", s.handleTimerStart)
	control.POST("/timer/pause", s.handleTimerPause)
	control.POST("/timer/reset", s.handleTimerReset)
	control.POST("/timer/extend", s.handleTimerExtend)
	control.POST("/timer/duration", s.handleTimerDuration)
	control.POST("/encounter/total", s.handleEncounterTotal)
	control.POST("/encounter/advance", s.handleEncounterAdvance)
	control.POST("/roll/open", s.handleRollOpen)
	control.POST("/roll/close", s.handleRollClose)
	control.POST("/roll/mode", s.handleRollMode)
	control.POST("/present", s.handlePresent)
	control.DELETE("/present", s.handleClearPresented)

	s.registerLibraryRoutes(api.Group("/library", s.requireAdminAPI()))
	return router
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(s.cfg.CORSAllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	return cors.New(corsConfig)
}
