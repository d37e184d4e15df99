package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/webfolio/chatd/internal/handlers"
	"github.com/webfolio/chatd/internal/mail"
	"github.com/webfolio/chatd/internal/prompt"
	"github.com/webfolio/chatd/internal/scheduler"
	"github.com/webfolio/chatd/internal/store"
	"gopkg.in/yaml.v3"
)

func main() {
	cfgPath := os.Getenv("CHATD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		log.Fatal(fmt.Errorf("error opening config file: %w", err))
	}
	defer cfgFile.Close()

	cfg := config{}
	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		log.Fatal(fmt.Errorf("error decoding config file: %w", err))
	}
	applyDefaults(&cfg)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	systemPrompt, err := prompt.Build(cfg.ContentDir)
	if err != nil {
		log.Fatal(fmt.Errorf("error building system prompt: %w", err))
	}

	llm, err := cfg.LLM.llm(systemPrompt, logger)
	if err != nil {
		log.Fatal(fmt.Errorf("error creating llm provider: %w", err))
	}

	conversationStore, closeStore, err := newStore(cfg.Storage, logger)
	if err != nil {
		log.Fatal(fmt.Errorf("error creating conversation store: %w", err))
	}
	defer closeStore()

	dispatcher, err := mail.NewDispatcher(mail.SMTPSender{}, logger)
	if err != nil {
		log.Fatal(fmt.Errorf("error creating mail dispatcher: %w", err))
	}

	m := handlers.NewMain(
		llm,
		conversationStore,
		dispatcher,
		os.Getenv("ADMIN_PASSWORD"),
		cfg.CleanupMaxAgeDays,
		logger,
	)

	mux := http.NewServeMux()
	m.Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The inactivity watcher is the external collaborator that mails
	// transcripts for conversations that have gone quiet.
	watcher := scheduler.New(
		conversationStore,
		dispatcher,
		time.Duration(cfg.InactivityMinutes)*time.Minute,
		time.Duration(cfg.ScanIntervalSeconds)*time.Second,
		logger,
	)
	watcherCtx, watcherCancel := context.WithCancel(context.Background())
	defer watcherCancel()
	go watcher.Run(watcherCtx)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", slog.String("err", err.Error()))

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))
		watcherCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("err", err.Error()))
			}
		}
	}
}

func applyDefaults(cfg *config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ContentDir == "" {
		cfg.ContentDir = "content"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join("content", "conversations")
	}
	if cfg.CleanupMaxAgeDays == 0 {
		cfg.CleanupMaxAgeDays = 30
	}
	if cfg.InactivityMinutes == 0 {
		cfg.InactivityMinutes = 5
	}
	if cfg.ScanIntervalSeconds == 0 {
		cfg.ScanIntervalSeconds = 60
	}
}

func newStore(cfg storageConfig, logger *slog.Logger) (store.ConversationStore, func(), error) {
	switch cfg.Backend {
	case "file":
		fs, err := store.NewFileStore(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	case "bolt":
		bs, err := store.NewBoltStore(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return bs, func() {
			if err := bs.Close(); err != nil {
				logger.Error("Failed to close bolt store", slog.String("err", err.Error()))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
