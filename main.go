package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/notify"
	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, cleanup, err := setup(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer cleanup()

	// --- Start HTTP Server ---
	go func() {
		log.Printf("Starting server on port %s", cfg.AppPort)
		if err := server.Listen(cfg.AppPort); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := server.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// setup wires every dependency named by cfg. cleanup releases them in
// reverse order and must be called after the server has shut down.
func setup(ctx context.Context, cfg *config.Config) (*fiber.App, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*fiber.App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = database.Close(db) })
	if err := database.Migrate(db); err != nil {
		return fail(err)
	}

	txOpts := database.DefaultTxOptions()
	txOpts.MaxRetries = cfg.Database.TxMaxRetries
	store := repositories.NewGORMStore(db, txOpts)

	// --- Order events ---
	// With a broker, events go through RabbitMQ and are consumed here;
	// without one they are dispatched in-process.
	dispatcher := events.NewDispatcher(notify.New(cfg.Mail))
	var publisher events.Publisher
	eventMode := "inline"
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = mqClient.Close() })
		if err := mqClient.ConsumeOrderEvents(ctx, dispatcher.Handle); err != nil {
			return fail(err)
		}
		publisher = mqClient
		eventMode = "rabbitmq"
	} else {
		inline := events.NewInlinePublisher(dispatcher.Handle)
		closers = append(closers, func() { _ = inline.Close() })
		publisher = inline
	}

	// --- Cart count cache ---
	var counter cache.CartCounter = cache.NopCartCounter{}
	if cfg.Redis.URL != "" {
		redisCounter, err := cache.NewRedisCartCounter(cfg.Redis.URL, cfg.Redis.CacheTTL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, cart counts will not be cached: %v", err)
		} else {
			closers = append(closers, func() { _ = redisCounter.Close() })
			counter = redisCounter
		}
	}

	deps := app.Deps{
		Store:     store,
		Publisher: publisher,
		Counter:   counter,
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
		EventMode: eventMode,
	}
	svc := app.NewServices(deps)
	if cfg.SeedDemo {
		if err := app.SeedDemo(ctx, svc); err != nil {
			return fail(err)
		}
	}
	return app.New(deps, svc), cleanup, nil
}
