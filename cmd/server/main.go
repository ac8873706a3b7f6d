// Command notes-server starts the notes HTTP API.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/notekeeper/internal/config"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/migrate"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/repository/postgres"
	"github.com/and161185/notekeeper/internal/repository/sqlite"
	grpcserver "github.com/and161185/notekeeper/internal/server/grpc"
	httpserver "github.com/and161185/notekeeper/internal/server/http"
	"github.com/and161185/notekeeper/internal/service"
	"github.com/and161185/notekeeper/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const healthInterval = 10 * time.Second

// store bundles the repositories and limiter of one backend.
type store struct {
	users repository.UserRepository
	notes repository.NoteRepository
	lim   limiter.Limiter
	db    httpserver.Pinger
	close func()
}

func openStore(ctx context.Context, cfg config.Config) (*store, error) {
	policy := limiter.Policy{Window: cfg.LimiterWindow, MaxFails: cfg.LimiterMaxFails, BlockFor: cfg.LimiterBlockFor}

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st := &store{users: sqlite.NewUserRepo(db), notes: sqlite.NewNoteRepo(db), lim: limiter.NewSQLite(db.SQL, policy), db: db, close: db.Close}
		if policy.MaxFails <= 0 {
			st.lim = limiter.Nop{}
		}
		return st, nil

	default:
		if err := migrate.Up(ctx, cfg.DSN); err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		db := &postgres.DB{Pool: pool}
		st := &store{users: postgres.NewUserRepo(db), notes: postgres.NewNoteRepo(db), lim: limiter.NewPG(pool, policy), db: db, close: db.Close}
		if policy.MaxFails <= 0 {
			st.lim = limiter.Nop{}
		}
		return st, nil
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// main loads configuration, opens the store, and serves HTTP (and optional gRPC health) until signalled.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		// logger is not configured yet
		boot, _ := zap.NewProduction()
		boot.Fatal("config", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("driver", cfg.DBDriver),
		zap.String("loginField", string(cfg.LoginField)),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer st.close()

	// Services
	authSvc := service.NewAuthService(st.users, token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL), st.lim, cfg.LoginField)
	noteSvc := service.NewNoteService(st.notes)

	api := httpserver.New(authSvc, noteSvc, st.db, logger, httpserver.Options{
		Prefix:      cfg.APIPrefix,
		CORSOrigins: cfg.CORSOrigins,
		LoginField:  cfg.LoginField,
	})
	srv := newHTTPServer(cfg, api.Handler(), logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening (http)", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var hs *grpcserver.Health
	if cfg.GRPCAddr != "" {
		hs = grpcserver.NewHealth(st.db, logger, cfg.Dev)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("listen grpc", zap.Error(err))
		}
		go hs.Watch(ctx, healthInterval)
		go func() {
			logger.Info("listening (grpc health)", zap.String("addr", cfg.GRPCAddr))
			errCh <- hs.Serve(lis)
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	if hs != nil {
		hs.Shutdown()
	}
	shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newHTTPServer(cfg config.Config, h http.Handler, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}
}
