package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/cardroom/broadcast"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/monitor"
	"github.com/wfunc/cardroom/persistence"
	"github.com/wfunc/cardroom/room"
	gameserver_rpc "github.com/wfunc/cardroom/rpc"
	"github.com/wfunc/cardroom/services"
	"github.com/wfunc/cardroom/session"
	"github.com/wfunc/cardroom/timer"
)

// Options configure a GameServer.
type Options struct {
	HTTPAddress       string
	RPCAddress        string
	MetricsAddress    string
	AllowedOrigins    []string
	TokenTTL          time.Duration
	GracePeriod       time.Duration
	HeartbeatInterval time.Duration
	ChannelBuffer     int
	HandSize          int
}

type GameServer struct {
	opts        Options
	db          persistence.Database
	auth        *services.AuthService
	accounts    *services.AccountService
	timers      *timer.TimerManager
	sessions    *session.Manager
	rooms       *room.Manager
	broadcaster *broadcast.Broadcaster
	monitor     *monitor.Monitor
	upgrader    websocket.Upgrader
	router      *gin.Engine

	httpServer    *http.Server
	metricsServer *http.Server
	rpcServer     *gameserver_rpc.Server
}

func NewGameServer(opts Options, db persistence.Database) *GameServer {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.ChannelBuffer <= 0 {
		opts.ChannelBuffer = 64
	}

	s := &GameServer{
		opts:    opts,
		db:      db,
		timers:  timer.NewTimerManager(timer.DefaultTick),
		monitor: monitor.NewMonitor("cardroom"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.auth = services.NewAuthService(db, opts.TokenTTL)
	s.accounts = services.NewAccountService(db, db, s.auth)
	s.sessions = session.NewManager(s.timers, opts.GracePeriod, s.monitor)
	s.broadcaster = broadcast.NewBroadcaster(s.sessions)
	s.rooms = room.NewRoomManager(s.sessions, s.broadcaster, room.Options{
		HandSize: opts.HandSize,
		Observer: s.monitor,
	})

	s.sessions.OnEvict(s.rooms.Evict)
	s.rooms.OnGameOver(s.recordGame)

	s.router = s.setupRouter()
	return s
}

func (s *GameServer) recordGame(result room.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.accounts.RecordGame(ctx, result.RoomID, result.Standings); err != nil {
		logger.Log.Errorf("Failed to record game of room %s: %v", result.RoomID, err)
	}
}

func (s *GameServer) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.observe())
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(s.opts.AllowedOrigins) == 0 || s.opts.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.opts.AllowedOrigins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": s.sessions.Count(),
			"rooms":    s.rooms.Count(),
		})
	})
	r.GET("/ws", s.handleWebSocket)
	s.setupRoutes(r.Group("/api"))
	return r
}

// Handler is the HTTP API and gateway.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down.
func (s *GameServer) Start(ctx context.Context) error {
	rpcServer, err := gameserver_rpc.NewServer(s.opts.RPCAddress)
	if err != nil {
		return err
	}
	if err := rpcServer.Register(gameserver_rpc.NewStatsService(s.accounts)); err != nil {
		return err
	}
	s.rpcServer = rpcServer
	go s.rpcServer.Start()

	if s.opts.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.monitor.Handler())
		mux.Handle("/debug/vars", s.monitor.VarsHandler())
		s.metricsServer = &http.Server{Addr: s.opts.MetricsAddress, Handler: mux}
		go func() {
			logger.Log.Infof("Metrics listening on %s", s.opts.MetricsAddress)
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	s.httpServer = &http.Server{Addr: s.opts.HTTPAddress, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Game server listening on %s", s.opts.HTTPAddress)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown(shutdownCtx)
	return nil
}

func (s *GameServer) Shutdown(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Log.Warnf("HTTP shutdown: %v", err)
		}
	}
	if s.metricsServer != nil {
		s.metricsServer.Shutdown(ctx)
	}
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	s.timers.Stop()
}
