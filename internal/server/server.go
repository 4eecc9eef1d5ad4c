package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizluv/internal/api"
	"github.com/victornm/quizluv/internal/event"
	"github.com/victornm/quizluv/internal/leaderboard"
	"github.com/victornm/quizluv/internal/quiz"
	"github.com/victornm/quizluv/internal/score"
	"github.com/victornm/quizluv/internal/storage"
	"github.com/victornm/quizluv/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port       int32
		CORSOrigin string
		// RateLimit is the number of requests per second allowed per client IP. 0 disables it.
		RateLimit float64
		Burst     int
	}

	Admin struct {
		Port  int32
		Pprof bool
	}

	Log telemetry.LogConfig

	SQLite struct {
		Path string
	}

	Redis struct {
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}
}

func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 4000
	c.HTTP.CORSOrigin = "http://localhost:5173"
	c.HTTP.Burst = 20
	c.Admin.Port = 9090
	c.Admin.Pprof = true
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.SQLite.Path = "data/quiz.db"
	c.Redis.Pubsub.Prefix = "quizluv"
	return c
}

type Server struct {
	c Config

	eb      *event.Bus
	metrics *telemetry.Metrics

	infra struct {
		db    *sql.DB
		redis redis.UniversalClient
	}

	service struct {
		quiz        *quiz.Service
		score       *score.Service
		leaderboard *leaderboard.Service
	}

	http  *http.Server
	admin *http.Server
}

func Init(ctx context.Context, c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()
	s.metrics = telemetry.NewMetrics()
	s.metrics.Subscribe(s.eb)

	if err := s.initInfra(ctx); err != nil {
		s.release()
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	s.initAdmin()
	return s, nil
}

func (s *Server) initInfra(ctx context.Context) error {
	if err := s.initSQLite(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	if err := s.initRedis(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return nil
}

func (s *Server) initSQLite(ctx context.Context) (err error) {
	s.infra.db, err = storage.Open(ctx, storage.Config{Path: s.c.SQLite.Path})
	if err != nil {
		return err
	}

	return storage.Migrate(ctx, s.infra.db)
}

// initRedis connects the pub/sub client. Leaderboard notifications are off
// when no address is configured.
func (s *Server) initRedis(ctx context.Context) error {
	c := s.c.Redis.Pubsub
	if len(c.Addrs) == 0 {
		slog.InfoContext(ctx, "server: redis pubsub not configured, leaderboard notifications disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    c.Addrs,
		Password: c.Pass,
	})
	s.infra.redis = r

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	return r.Ping(ctx).Err()
}

func (s *Server) initService() {
	s.service.quiz = quiz.NewService(quiz.Config{
		DB: s.infra.db,
	})

	s.service.score = score.NewService(score.Config{
		EventBus: s.eb,
		Quiz:     s.service.quiz,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		DB:       s.infra.db,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.Use(
		telemetry.RequestID(),
		telemetry.AccessLog(),
		s.metrics.Middleware(),
		api.Recovery(),
		api.CORS(s.c.HTTP.CORSOrigin),
		api.RateLimit(s.c.HTTP.RateLimit, s.c.HTTP.Burst),
	)

	c := api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Quiz:         s.service.quiz,
		Score:        s.service.score,
		Leaderboard:  s.service.leaderboard,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	}
	if s.infra.redis != nil {
		c.Redis = s.infra.redis
	}
	api.New(c)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) initAdmin() {
	e := gin.New()
	e.Use(gin.Recovery())
	e.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	e.GET("/healthz", s.healthz)
	if s.c.Admin.Pprof {
		pprof.Register(e, "/debug/pprof")
	}

	s.admin = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.Admin.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.infra.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Handler serves the public API.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// AdminHandler serves metrics, health and profiling endpoints.
func (s *Server) AdminHandler() http.Handler {
	return s.admin.Handler
}

// Start serves the API and admin listeners until Shutdown is called or one of
// them fails.
func (s *Server) Start() error {
	ctx := context.TODO()

	servers := []*http.Server{s.http, s.admin}
	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		lis, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return fmt.Errorf("server: listen on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, lis)
	}

	var eg errgroup.Group
	for i, srv := range servers {
		lis := listeners[i]
		eg.Go(func() error {
			slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on %s", lis.Addr()))
			if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
		return err
	}
	return nil
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{s.http, s.admin} {
		if err := srv.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "server: shutdown HTTP failed", "addr", srv.Addr, "error", err)
		}
	}

	s.eb.Stop()
	s.release()

	slog.InfoContext(ctx, "server: shutdown completed")
}

func (s *Server) release() {
	if s.infra.redis != nil {
		if err := s.infra.redis.Close(); err != nil {
			slog.Error("server: close redis failed", "error", err)
		}
	}

	if s.infra.db != nil {
		if err := s.infra.db.Close(); err != nil {
			slog.Error("server: close sqlite failed", "error", err)
		}
	}
}
