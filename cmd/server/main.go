package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/alextreichler/luxora/internal/auth"
	"github.com/alextreichler/luxora/internal/catalog"
	"github.com/alextreichler/luxora/internal/config"
	"github.com/alextreichler/luxora/internal/handlers"
	"github.com/alextreichler/luxora/internal/media"
	"github.com/alextreichler/luxora/internal/ordering"
	"github.com/alextreichler/luxora/internal/store"
	"github.com/alextreichler/luxora/web"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Init DB
	db, err := store.NewStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run Migrations
	if err := db.Migrate(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "dialect", db.Dialect())

	authService := auth.NewService(db)
	if cfg.AdminConfigured() {
		if _, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("Failed to seed admin user", "username", cfg.AdminUsername, "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("ADMIN_USERNAME/ADMIN_PASSWORD not set. Use the cli add-user command to create an admin.")
	}

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure // Configurable for production
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	sessionStore.Options.MaxAge = 7 * 24 * 60 * 60
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Init Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load(web.FS, web.TemplatesDir); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	images, err := media.NewStore(cfg.UploadDir)
	if err != nil {
		slog.Error("Failed to prepare upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	// 5. Setup Handlers
	catalogService := catalog.NewService(db, images)
	orderService := ordering.NewService(db, db, cfg.OrderRequireAddress)
	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.APITokenTTL)
	base := handlers.Base{SessionStore: sessionStore, Templates: templates}

	router := &handlers.Router{
		Home:    &handlers.HomeHandler{Base: base, Catalog: catalogService},
		Orders:  &handlers.OrderHandler{Base: base, Catalog: catalogService, Orders: orderService, Store: db},
		Account: &handlers.AccountHandler{Base: base, Auth: authService, Store: db},
		Admin: &handlers.AdminHandler{
			Base:           base,
			Store:          db,
			Catalog:        catalogService,
			Orders:         orderService,
			MaxUploadBytes: cfg.MaxUploadBytes(),
		},
		API: &handlers.APIHandler{Store: db, Orders: orderService, Auth: authService, Tokens: tokens},
		Auth: &handlers.Authenticator{
			SessionStore: sessionStore,
			Users:        db,
			Tokens:       tokens,
		},
		Static:    staticFS(cfg),
		UploadDir: cfg.UploadDir,
		CSRF:      csrfMiddleware(cfg),
	}

	if cfg.OrderRateWindow > 0 {
		router.OrderLimiter = handlers.NewRateLimiter(cfg.OrderRateWindow)
		go router.OrderLimiter.Run(ctx)
	}

	// 6. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // Multipart uploads
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Goroutine to start the server
	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-ctx.Done()

	slog.Info("Shutting down server gracefully...")

	// Create a deadline to wait for.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}

func setupLogger(cfg *config.Config) {
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func staticFS(cfg *config.Config) fs.FS {
	if cfg.StaticDir == "" {
		return web.Static()
	}
	slog.Info("Serving static assets from disk", "dir", cfg.StaticDir)
	return os.DirFS(cfg.StaticDir)
}

func csrfMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure), // Configurable for production
		csrf.Path("/"),
		// Fix for "Forbidden - origin invalid": Trust local development origins
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)
	if cfg.CookieSecure {
		return protect
	}
	// Without TLS the origin check must treat requests as plaintext.
	return func(next http.Handler) http.Handler {
		h := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
