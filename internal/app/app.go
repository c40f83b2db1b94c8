package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/data/db"
	"github.com/studyline/studyline-backend/internal/http"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/realtime"
	"github.com/studyline/studyline-backend/internal/utils"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	hub := realtime.NewSSEHub(log)

	clients, err := wireClients(log)
	if err != nil {
		return nil, err
	}
	repos := wireRepos(theDB, log)
	serviceset, err := wireServices(log, repos, clients, hub)
	if err != nil {
		return nil, err
	}
	handlerset := wireHandlers(log, theDB, serviceset, hub)
	middleware := wireMiddleware(log, serviceset)
	server := wireRouter(handlerset, middleware)

	return &App{
		Log:      log,
		DB:       theDB,
		Server:   server,
		Repos:    repos,
		Clients:  clients,
		Services: serviceset,
		SSEHub:   hub,
	}, nil
}

// Start launches background work: the redis forwarder that rebroadcasts
// events published by other replicas into this process's hub.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			a.Log.Warn("SSE forwarder failed to start, delivery stays local", "error", err)
		}
	}
}

func (a *App) Run() error {
	a.Start()
	port := utils.GetEnv("PORT", "8080", a.Log)
	a.Log.Info("Server listening", "port", port)
	return a.Server.Run(":" + port)
}

func (a *App) Stop() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.SSEBus != nil {
		_ = a.Clients.SSEBus.Close()
	}
	if a.Clients.HotCache != nil {
		_ = a.Clients.HotCache.Close()
	}
	a.Log.Sync()
}
