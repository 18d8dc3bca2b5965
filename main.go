package main

import (
	"time"

	"github.com/wfunc/connect4/config"
	"github.com/wfunc/connect4/logger"
	"github.com/wfunc/connect4/monitor"
	"github.com/wfunc/connect4/persistence"
	"github.com/wfunc/connect4/server"
	"github.com/wfunc/connect4/timer"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize storage backend
	store, err := openStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to open store: %v", err)
	}
	logger.Log.Infof("Store ready (driver: %s)", cfg.Database.Driver)

	// Sweep players left behind by a previous run
	if removed, err := store.RemoveOrphanedPlayers(); err != nil {
		logger.Log.Warnf("Orphaned player cleanup failed: %v", err)
	} else if removed > 0 {
		logger.Log.Infof("Cleaned up %d orphaned players", removed)
	}

	// Initialize metrics
	mon := monitor.NewMonitor("connect4")
	if cfg.Server.MetricsAddress != "" {
		mon.StartServer(cfg.Server.MetricsAddress)
	}

	// Initialize game server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, store, mon)

	// Periodic maintenance: metrics refresh and orphan sweeps
	tasks := timer.NewManager()
	tasks.Schedule(0, 30*time.Second, func() {
		mon.SetActiveRooms(gameServer.Coordinator().SessionCount())
		mon.SetPushSubscribers(gameServer.Hub().SubscriberCount())
	})
	tasks.Schedule(10*time.Minute, 10*time.Minute, func() {
		if _, err := store.RemoveOrphanedPlayers(); err != nil {
			logger.Log.Warnf("Orphaned player cleanup failed: %v", err)
		}
	})

	// Start server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func openStore(cfg *config.Config) (persistence.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	case "gorm":
		return persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	case "redis":
		return persistence.NewRedis(
			cfg.Database.Redis.Address,
			cfg.Database.Redis.Password,
			cfg.Database.Redis.DB,
		)
	default:
		return persistence.NewMemory(), nil
	}
}
