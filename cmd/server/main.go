package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"converse/api"
	"converse/auth"
	"converse/domain/event"
	"converse/internal"
	"converse/moderation"
	"converse/presence"
	"converse/repositories"
	"converse/services"
	"converse/transport"
	"converse/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)
	auth.SetSecret(config.TokenSecret)

	// 2. Storage (BadgerDB + Bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()

	// 3. Repositories
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	groupRepository := repositories.NewGroupRepository(db)
	searchIndex := repositories.NewMessageIndex(writer, log)

	// 4. Runtime state: presence, hub, events
	registry := presence.NewRegistry()
	hub := transport.NewHub(log)
	bus := event.NewBus()
	counter := event.NewCounter()
	event.NewMetrics(log, counter).Register(bus)

	// 5. Moderation (optional, driven by config)
	filter, err := buildFilter(config)
	if err != nil {
		return err
	}

	// 6. Workers; the indexer is fed by the bus, so all subscriptions
	// happen here, before any message can flow.
	indexer := workers.NewIndexerWorker(log, searchIndex, config.IndexQueueSize)
	bus.OnMessageSaved(func(e event.MessageSaved) { indexer.Enqueue(e.Message) })
	telemetry := workers.NewTelemetryWorker(log, config.MetricInterval, registry, counter)

	// 7. Services
	chatService := services.NewChatService(
		log, messageRepository, userRepository, groupRepository,
		searchIndex, registry, hub, bus, filter,
	)
	groupService := services.NewGroupService(log, groupRepository, userRepository)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	userService := services.NewUserService(log, userRepository, config.AvatarDir)

	// 8. Transport & HTTP surface
	session := transport.NewSession(log, registry, hub, chatService, groupService)
	router := api.New(log, authService, userService, groupService, chatService, registry).
		Router(session)

	// 9. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log)
	sup.Add(indexer, telemetry)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 10. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 11. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 12. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

// buildFilter returns nil when no moderation word list is configured;
// the chat service treats a nil filter as a pass-through.
func buildFilter(config internal.Config) (*moderation.Filter, error) {
	words := moderation.ParseWords(config.ModerationWords)
	if len(words) == 0 {
		return nil, nil
	}

	mask, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	return moderation.NewFilter(words, mask)
}
