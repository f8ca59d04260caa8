package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mailnotes/server/internal/auth"
	"github.com/mailnotes/server/internal/config"
	"github.com/mailnotes/server/internal/db"
	httphandler "github.com/mailnotes/server/internal/http"
	"github.com/mailnotes/server/internal/http/handlers"
	"github.com/mailnotes/server/internal/logging"
	"github.com/mailnotes/server/internal/mailer"
	"github.com/mailnotes/server/internal/notes"
	"github.com/mailnotes/server/internal/repo"
)

func main() {
	// Load .env from CWD or server/ so it works from repo root or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type repositories struct {
	users  repo.UserRepo
	tokens repo.TokenRepo
	notes  repo.NoteRepo
	closer func() error
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return &repositories{
			users:  repo.NewMemoryUserRepo(),
			tokens: repo.NewMemoryTokenRepo(),
			notes:  repo.NewMemoryNoteRepo(),
			closer: func() error { return nil },
		}, nil
	}

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		_ = database.Close()
		return nil, err
	}
	return postgresRepositories(database), nil
}

func postgresRepositories(database *sql.DB) *repositories {
	return &repositories{
		users:  repo.NewUserRepo(database),
		tokens: repo.NewTokenRepo(database),
		notes:  repo.NewNoteRepo(database),
		closer: database.Close,
	}
}

func newSender(cfg *config.Config, logger *slog.Logger) (mailer.Sender, error) {
	if cfg.MailDriver == config.MailDriverLog {
		logger.Warn("mail driver is log; codes are written to the log instead of being sent")
		return mailer.NewLogSender(logger), nil
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
	})
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.closer(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	sender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}

	codec, err := auth.NewSessionCodec(cfg.CookieSecret)
	if err != nil {
		return err
	}
	codeProvider := auth.NewEmailCodeProvider(repos.users, repos.tokens, sender)
	authService := auth.NewAuthService(codeProvider, codec, repos.users, sender, cfg.NotifyTimeout)

	authHandler := handlers.NewAuthHandler(authService, handlers.CookieOptions{
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
	}, cfg.StrictSessionChoice)
	notesHandler := handlers.NewNotesHandler(notes.NewService(repos.notes))

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Resolver:    authService,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	}, authHandler, notesHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "storage", cfg.Storage, "mail_driver", cfg.MailDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := authService.Wait(shutdownCtx); err != nil {
		logger.Warn("login notices still pending at exit", "error", err)
	}

	logger.Info("server exited")
	return nil
}
