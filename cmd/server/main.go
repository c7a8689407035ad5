package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/karataya/karata-server-go/internal/config"
	"github.com/karataya/karata-server-go/internal/game"
	"github.com/karataya/karata-server-go/internal/lobby"
	"github.com/karataya/karata-server-go/internal/repository"
	"github.com/karataya/karata-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting karata server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)

	gameRepo := repository.NewGameRepository(db, cfg.Database.BackupDir, logger)
	if err := gameRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure database schema", zap.Error(err))
	}

	engine := game.NewEngine(logger)
	gameMgr := game.NewManager(engine, gameRepo, cfg.Game.CardsPerPlayer, cfg.Game.HistoryDepth, logger)
	logger.Info("game manager initialized",
		zap.Int("cards_per_player", cfg.Game.CardsPerPlayer),
		zap.Int("history_depth", cfg.Game.HistoryDepth),
	)

	lobbyMgr := lobby.NewManager(cfg.Game.MinPlayers, cfg.Game.StartCountdown, logger)
	logger.Info("lobby manager initialized",
		zap.Int("min_players", cfg.Game.MinPlayers),
		zap.Duration("start_countdown", cfg.Game.StartCountdown),
	)

	wsServer := server.NewServer(cfg.Server.WebSocket, lobbyMgr, gameMgr, logger)

	go func() {
		if serveErr := wsServer.Start(); serveErr != nil {
			logger.Error("websocket server error", zap.Error(serveErr))
		}
	}()

	logger.Info("karata server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	logger.Info("karata server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
