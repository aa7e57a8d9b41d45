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

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"

	"github.com/rahul4469/gitgrade/internal/analysis"
	"github.com/rahul4469/gitgrade/internal/config"
	"github.com/rahul4469/gitgrade/internal/controllers"
	"github.com/rahul4469/gitgrade/internal/crypto"
	"github.com/rahul4469/gitgrade/internal/middleware"
	"github.com/rahul4469/gitgrade/internal/models"
	"github.com/rahul4469/gitgrade/internal/services"
	"github.com/rahul4469/gitgrade/internal/views"
	"github.com/rahul4469/gitgrade/migrations"
	"github.com/rahul4469/gitgrade/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Setup the Database ---------------
	log.Println("Connecting to database...")
	db, err := models.Open(ctx, models.DefaultDatabaseConfig(cfg.Database.URL))
	if err != nil {
		return err
	}
	defer db.Close()
	log.Println("Database connected successfully")

	// run migrations
	if err := models.MigrateFS(db, migrations.FS, "."); err != nil {
		return err
	}

	// Setup Services ---------------
	sealer, err := crypto.NewSealer(cfg.Security.CredentialSecret)
	if err != nil {
		return fmt.Errorf("credential sealer: %w", err)
	}
	settingsService := models.NewSettingsService(db, sealer, cfg.Analysis.DefaultEndpoint)
	analysisService := models.NewAnalysisService(db)

	demoDelay := cfg.Analysis.DemoDelay
	if demoDelay == 0 {
		demoDelay = -1
	}
	client := analysis.NewClient(analysis.Options{
		HTTPClient: &http.Client{},
		Timeout:    cfg.Analysis.Timeout,
		DemoDelay:  demoDelay,
	})

	githubFetcher, err := services.NewGitHubFetcher(cfg.GitHub.Token, cfg.GitHub.APIBaseURL)
	if err != nil {
		return err
	}

	// Setup Controllers ---------------
	analyzeCtrl := controllers.NewAnalyzeController(
		client,
		settingsService,
		analysisService,
		views.MustParseFS(templates.FS, "pages/analyze.gohtml"),
	)
	historyCtrl := controllers.NewHistoryController(
		analysisService,
		githubFetcher,
		cfg.Limits.HistoryLimit,
		controllers.HistoryTemplates{
			Result: views.MustParseFS(templates.FS, "pages/result.gohtml"),
			List:   views.MustParseFS(templates.FS, "pages/history.gohtml"),
		},
	)
	settingsCtrl := controllers.NewSettingsController(
		settingsService,
		views.MustParseFS(templates.FS, "pages/settings.gohtml"),
	)

	sessionMw := middleware.NewSessionMiddleware(
		cfg.Security.SessionCookieName,
		cfg.Security.SessionDuration,
		cfg.Security.SecureCookies,
	)
	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
	)

	// Setup router and routes
	r := chi.NewRouter()
	r.Get("/healthz", controllers.HealthCheck(func(ctx context.Context) error {
		return models.Health(ctx, db, 2*time.Second)
	}))

	r.Group(func(r chi.Router) {
		if !cfg.IsProduction() {
			r.Use(plaintextHTTP)
		}
		r.Use(csrfMw)
		r.Use(sessionMw.SetSession)

		r.Get("/", controllers.RedirectTo("/analyze"))

		r.Get("/analyze", analyzeCtrl.GetAnalyze)
		r.Post("/analyze", analyzeCtrl.PostAnalyze)

		r.Get("/analyses/{id}", historyCtrl.GetAnalysis)
		r.Post("/analyses/{id}/delete", historyCtrl.PostDeleteAnalysis)
		r.Get("/history", historyCtrl.GetHistory)

		r.Get("/settings", settingsCtrl.GetSettings)
		r.Post("/settings", settingsCtrl.PostSettings)
	})

	return serve(ctx, cfg, r)
}

// plaintextHTTP tells the CSRF middleware that development traffic is
// served without TLS.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func serve(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server at port %s (env=%s)", cfg.Server.Port, cfg.Server.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
