// Package main is the entry point for the Sugoroku game server.
// It only handles dependency injection and server initialization.
// NO game logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MRamiBalles/Sugoroku/server/internal/engine"
	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/infra/storage"
	"github.com/MRamiBalles/Sugoroku/server/internal/network"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/config"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/metrics"
)

func main() {
	log.Println("[SUGOROKU] Initializing authoritative board server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}
	tuning := cfg.TuningProfile()

	appLogger.Info("Initializing SQLite database '" + cfg.DBPath + "'...")
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	defer db.Close()
	storage.ConfigurePool(db, tuning.DBMaxOpenConns, tuning.DBMaxIdleConns)

	eventRepo := storage.NewSQLiteEventRepository(db)
	standingRepo := storage.NewSQLiteStandingRepository(db)
	stateRepo := storage.NewSQLiteGameStateRepository(db)
	reconstructor := storage.NewReconstructor(eventRepo)

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(storage.NewEventPersister(eventRepo, cfg.GameID))
	eventLog.OnPersistError(func(err error) {
		appLogger.Errorf("Failed to persist event: %v", err)
	})

	seed := cfg.Seed
	if seed == 0 {
		if seed, err = engine.NewSeed(); err != nil {
			appLogger.Error("Failed to seed dice: " + err.Error())
			os.Exit(1)
		}
	}
	appLogger.Info(fmt.Sprintf("Dice seed: %d", seed))

	appLogger.Info("Bootstrapping Engine...")
	gameEngine, err := engine.NewEngine(cfg.Engine(), engine.NewRandomRoller(seed), eventLog, appLogger)
	if err != nil {
		appLogger.Error("Failed to build engine: " + err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := restoreGame(ctx, cfg.GameID, gameEngine, standingRepo, stateRepo, reconstructor, appLogger); err != nil {
		appLogger.Error("Failed to restore game: " + err.Error())
		os.Exit(1)
	}

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(gameEngine, network.HubOptions{
		BroadcastBuffer:      tuning.BroadcastBuffer,
		ClientSendBuffer:     tuning.ClientSendBuffer,
		MaxClients:           tuning.MaxClients,
		MaxMessagesPerSecond: tuning.MaxMessagesPerSecond,
	}, appLogger)
	hub.Follow(eventLog)
	go hub.Run(ctx)

	ticker := engine.NewTicker(gameEngine, hub, cfg.FrameInterval, appLogger)
	go ticker.Start(ctx)

	go backupLoop(ctx, cfg, gameEngine, standingRepo, stateRepo, tuning, appLogger)

	api := network.NewAPI(gameEngine, hub, eventLog, reconstructor, cfg.GameID, appLogger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Println("[SUGOROKU] HTTP API & WS Server listening on " + cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[SUGOROKU] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[SUGOROKU] Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown: " + err.Error())
	}
	ticker.Stop()
	cancel()
	if err := backup(shutdownCtx, cfg.GameID, gameEngine, standingRepo, stateRepo); err != nil {
		appLogger.Error("Final backup failed: " + err.Error())
	}
}

// restoreGame seats the players of a previous run. The snapshot tables are
// used while they are at least as new as the event log; otherwise the
// history is folded back into standings.
func restoreGame(ctx context.Context, gameID string, eng *engine.Engine, standingRepo storage.StandingRepository,
	stateRepo storage.GameStateRepository, reconstructor *storage.Reconstructor, appLogger *logger.Logger) error {
	appLogger.Info("Checking DB for existing players...")
	snaps, err := standingRepo.GetByGameID(ctx, gameID)
	if err != nil {
		return err
	}
	state, err := stateRepo.Load(ctx, gameID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	rebuilt, err := reconstructor.RebuildGame(ctx, gameID)
	if err != nil {
		return err
	}

	if len(snaps) > 0 && state != nil && rebuilt.CoveredBy(state.LastUpdated) {
		appLogger.Info("Restoring players from SQLite snapshots...")
		return eng.Restore(toEngineStandings(snaps), engine.Progress{
			Turn:        state.Turn,
			CurrentSeat: state.CurrentSeat,
			LastRoll:    state.LastRoll,
		})
	}

	if len(rebuilt.Standings) == 0 {
		appLogger.Info("Database empty. Waiting for players to join.")
		return nil
	}
	appLogger.Info(fmt.Sprintf("Snapshot stale or missing; reconstructing players from %d events...", rebuilt.Events))
	return eng.Restore(toEngineStandings(rebuilt.Standings), engine.Progress{
		Turn:        rebuilt.State.Turn,
		CurrentSeat: rebuilt.State.CurrentSeat,
		LastRoll:    rebuilt.State.LastRoll,
	})
}

// backupLoop snapshots the board every interval and reviews the metrics.
func backupLoop(ctx context.Context, cfg config.Config, eng *engine.Engine, standingRepo storage.StandingRepository,
	stateRepo storage.GameStateRepository, tuning config.Tuning, appLogger *logger.Logger) {
	backupTicker := time.NewTicker(cfg.BackupInterval)
	defer backupTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-backupTicker.C:
			if err := backup(ctx, cfg.GameID, eng, standingRepo, stateRepo); err != nil {
				appLogger.Warn("State backup failed: " + err.Error())
			}

			rec := config.Analyze(metrics.Get().Snapshot())
			for _, note := range rec.Notes {
				appLogger.Warn("Tuning: " + note)
			}
			if suggested := tuning.Apply(rec); suggested != tuning {
				appLogger.Info(fmt.Sprintf("Tuning: consider %+v", suggested))
			}
		}
	}
}

func backup(ctx context.Context, gameID string, eng *engine.Engine, standingRepo storage.StandingRepository, stateRepo storage.GameStateRepository) error {
	standings := eng.Standings()
	snaps := make([]storage.TokenStanding, len(standings))
	for i, s := range standings {
		snaps[i] = storage.TokenStanding{
			PlayerID:   s.PlayerID,
			GameID:     gameID,
			Name:       s.Name,
			Sprite:     s.Sprite,
			Seat:       i,
			PanelIndex: s.PanelIndex,
			Laps:       s.Laps,
		}
	}
	if err := standingRepo.ReplaceAll(ctx, gameID, snaps); err != nil {
		return err
	}

	p := eng.Progress()
	return stateRepo.Save(ctx, storage.GameState{
		GameID:      gameID,
		Turn:        p.Turn,
		CurrentSeat: p.CurrentSeat,
		LastRoll:    p.LastRoll,
	})
}

func toEngineStandings(snaps []storage.TokenStanding) []engine.Standing {
	out := make([]engine.Standing, len(snaps))
	for i, s := range snaps {
		out[i] = engine.Standing{
			PlayerID:   s.PlayerID,
			Name:       s.Name,
			Sprite:     s.Sprite,
			PanelIndex: s.PanelIndex,
			Laps:       s.Laps,
		}
	}
	return out
}
