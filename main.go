package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/camden-git/attendancebackend/config"
	"github.com/camden-git/attendancebackend/database"
	"github.com/camden-git/attendancebackend/handlers"
	"github.com/camden-git/attendancebackend/logger"
	"github.com/camden-git/attendancebackend/realtime"
	"github.com/camden-git/attendancebackend/repository"
	"github.com/camden-git/attendancebackend/services"
	"github.com/camden-git/attendancebackend/session"
	"github.com/camden-git/attendancebackend/workers"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logger.DefaultServiceName)
	if err != nil {
		log.Fatalf("FATAL: Failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	if cfg.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			zap.S().Fatalf("Failed to create database directory %s: %v", filepath.Dir(cfg.DatabasePath), err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		zap.S().Fatalf("Failed to initialize database: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		zap.S().Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	personRepo := repository.NewPersonRepository(gormDB)
	sessionRepo := repository.NewSessionRepository(gormDB)
	attendanceRepo := repository.NewAttendanceRepository(gormDB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	controller := session.NewController(personRepo, sessionRepo, attendanceRepo, hub)
	if state, err := controller.Restore(time.Now()); err != nil {
		zap.S().Fatalf("Failed to restore session state: %v", err)
	} else if state.Session != nil {
		zap.S().Infof("Resumed session %d (%s) in %s phase", state.Session.ID, state.Session.Title, state.Phase)
	}
	hub.Snapshot = func() []realtime.Event {
		return sessionSnapshot(controller, time.Now())
	}

	clock := workers.NewSessionClock(controller, cfg.TickInterval)
	clock.Start()

	registry := services.NewRegistryService(personRepo, time.Now)
	history := services.NewHistoryService(sqlDB, sessionRepo, controller, time.Local)

	router := handlers.NewRouter(handlers.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: 60 * time.Second,
		People:         &handlers.PersonHandler{Registry: registry, Roster: controller, MaxUploadMB: cfg.MaxImportUploadMB},
		Sessions: &handlers.SessionHandler{
			Controller:            controller,
			DefaultNormalDuration: cfg.DefaultNormalDuration,
			DefaultLateDuration:   cfg.DefaultLateDuration,
			Now:                   time.Now,
		},
		History:   &handlers.HistoryHandler{History: history},
		WebSocket: hub.ServeWS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infof("Starting attendance server on %s (database: %s)", srv.Addr, cfg.DatabasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("Could not start server: %v", err)
		}
	}()

	<-ctx.Done()
	zap.S().Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnf("HTTP server shutdown: %v", err)
	}
	clock.Stop()
	zap.S().Info("Server stopped")
}

// sessionSnapshot is what a newly connected screen needs to render the
// current session without waiting for the next tick.
func sessionSnapshot(controller *session.Controller, now time.Time) []realtime.Event {
	state, err := controller.Current(now)
	if err != nil {
		zap.S().Warnf("Failed to read session state for snapshot: %v", err)
		return nil
	}
	if state.Session == nil {
		return []realtime.Event{realtime.PhaseEvent(0, session.PhaseIdle)}
	}

	events := []realtime.Event{
		realtime.PhaseEvent(state.Session.ID, state.Phase),
		realtime.CountdownEvent(state.Session.ID, state.Phase, state.Remaining),
	}
	roster, err := controller.Roster()
	if err != nil {
		zap.S().Warnf("Failed to build roster for snapshot: %v", err)
		return events
	}
	return append(events, realtime.Event{Type: realtime.EventRosterReset, SessionID: state.Session.ID, Roster: roster})
}
