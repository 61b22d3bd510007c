package main

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/adirathodd/titan-trading/internal/api"
	"github.com/adirathodd/titan-trading/internal/config"
	"github.com/adirathodd/titan-trading/internal/handlers"
	"github.com/adirathodd/titan-trading/internal/market"
	"github.com/adirathodd/titan-trading/internal/middleware"
	"github.com/adirathodd/titan-trading/internal/session"
	"github.com/adirathodd/titan-trading/internal/storage"
)

// App holds the application dependencies.
type App struct {
	config         *config.Config
	log            *slog.Logger
	db             *storage.DB
	store          *session.Store
	client         *api.Client
	registry       *market.Registry
	router         *chi.Mux
	authMiddleware *middleware.AuthMiddleware
	homeHandler    *handlers.HomeHandler
	authHandler    *handlers.AuthHandler
	dashHandler    *handlers.DashboardHandler
	stockHandler   *handlers.StockHandler
	tickersHandler *handlers.TickersHandler
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging.Level)

	db, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Error("run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database ready", "path", cfg.Storage.DBPath)

	encryptor, err := storage.NewEncryptor(cfg.EncryptionSecret)
	if err != nil {
		log.Error("init encryptor", "error", err)
		os.Exit(1)
	}

	credRepo := storage.NewCredentialRepository(db, encryptor)
	journal := storage.NewTradeJournal(db)

	store, err := session.NewStore(credRepo, log)
	if err != nil {
		log.Error("restore session", "error", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.Backend.BaseURL, store, log, api.Options{
		Timeout:       cfg.Backend.RequestTimeout,
		RatePerSecond: cfg.Backend.RatePerSecond,
		Burst:         cfg.Backend.Burst,
	})

	registry := market.NewRegistry(func(symbol string) *market.Controller {
		return market.NewController(symbol, client, store, journal, log,
			cfg.Market.PollInterval, cfg.Market.MessageTTL)
	}, cfg.Market.IdleTimeout, log)

	// Tear down open market views when the session ends so nothing keeps
	// polling with dead credentials.
	subID, states := store.Subscribe(8)
	defer store.Unsubscribe(subID)
	go func() {
		for state := range states {
			if !state.Authenticated {
				registry.ReleaseAll()
			}
		}
	}()

	templates, err := parseTemplates()
	if err != nil {
		log.Error("parse templates", "error", err)
		os.Exit(1)
	}

	app := &App{
		config:         cfg,
		log:            log,
		db:             db,
		store:          store,
		client:         client,
		registry:       registry,
		authMiddleware: middleware.NewAuthMiddleware(store),
		homeHandler:    handlers.NewHomeHandler(templates, store, log),
		authHandler:    handlers.NewAuthHandler(templates, client, store, journal, log),
		dashHandler:    handlers.NewDashboardHandler(templates, client, store, log),
		stockHandler:   handlers.NewStockHandler(templates, registry, store, journal, log),
		tickersHandler: handlers.NewTickersHandler(client, log),
	}

	app.setupRouter()

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.Address(), "backend", cfg.Backend.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
	}

	// Stop polling loops after in-flight requests have drained.
	registry.Close()

	log.Info("server stopped")
}

func (app *App) setupRouter() {
	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Compress(5))

	r.Use(middleware.SecurityHeaders)

	// Static files
	workDir, _ := os.Getwd()
	staticPath := filepath.Join(workDir, "web", "static")
	fileServer := http.FileServer(http.Dir(staticPath))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/health", app.homeHandler.Health)
	r.Get("/", app.homeHandler.Home)

	// Email verification links arrive from outside any session.
	r.Get("/verify/{uidb64}/{token}", app.authHandler.Verify)

	// Public routes (redirect if already authenticated)
	// Rate limited to slow credential stuffing
	r.Group(func(r chi.Router) {
		r.Use(app.authMiddleware.RedirectIfAuthenticated)
		r.Use(middleware.LimitAuth)
		r.Get("/login", app.authHandler.LoginPage)
		r.Post("/login", app.authHandler.Login)
		r.Get("/register", app.authHandler.RegisterPage)
		r.Post("/register", app.authHandler.Register)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(app.authMiddleware.RequireAuth)

		r.Get("/dashboard", app.dashHandler.Dashboard)

		r.Get("/stocks/{ticker}", app.stockHandler.StockPage)
		r.Post("/stocks/{ticker}/buy", app.stockHandler.Buy)
		r.Post("/stocks/{ticker}/sell", app.stockHandler.Sell)

		r.Group(func(r chi.Router) {
			r.Use(middleware.LimitAPI)
			r.Get("/api/tickers", app.tickersHandler.Search)
		})
	})

	// Logout (needs to be accessible when logged in)
	r.Post("/logout", app.authHandler.Logout)

	app.router = r
}

// newLogger builds the process-wide structured logger.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// parseTemplates loads and parses all page templates against the layout.
func parseTemplates() (handlers.TemplateCache, error) {
	cache := make(handlers.TemplateCache)

	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
	}

	layoutPath := filepath.Join("web", "templates", "layouts", "base.html")

	pagesGlob := filepath.Join("web", "templates", "pages", "*.html")
	pages, err := filepath.Glob(pagesGlob)
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := filepath.Base(page)

		tmpl, err := template.New(filepath.Base(layoutPath)).Funcs(funcMap).ParseFiles(layoutPath, page)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}

		cache[name] = tmpl
	}

	return cache, nil
}
