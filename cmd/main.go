/**
 * @description
 * This is the main entry point for the transfer-service. It is responsible for
 * initializing all components of the service, including configuration, the Supabase
 * REST client, message brokers, the repository, the core application service, and
 * the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/joho/godotenv: For loading .env files in local development.
 * - github.com/redis/go-redis/v9: For search rate limiting.
 * - internal/api, internal/app, internal/config, internal/phone, internal/store: Internal packages.
 * - pkg/supaclient: Client for the Supabase REST API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zimpay/transfer-service/internal/api"
	"github.com/zimpay/transfer-service/internal/app"
	"github.com/zimpay/transfer-service/internal/config"
	"github.com/zimpay/transfer-service/internal/phone"
	"github.com/zimpay/transfer-service/internal/store"
	rmrabbit "github.com/zimpay/transfer-service/pkg/rabbitmq"
	"github.com/zimpay/transfer-service/pkg/supaclient"
)

func main() {
	// Load a local .env file when present; in deployed environments the
	// variables arrive through the process environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using process environment\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.SupabaseURL) == "" || strings.TrimSpace(cfg.SupabaseServiceKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"supabase credentials must be configured\" env=SUPABASE_URL,SUPABASE_SERVICE_KEY")
	}
	if strings.TrimSpace(cfg.SupabaseJWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=SUPABASE_JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting transfer-service\" port=%s region=%s", cfg.ServerPort, cfg.PhoneHomeRegion)

	// Initialize the Supabase REST client and the repository over it.
	supabase := supaclient.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	repository := store.NewSupabaseRepository(supabase)

	// Initialize the RabbitMQ producer to publish transfer events. A missing
	// broker degrades to a no-op publisher rather than blocking startup.
	var producer rmrabbit.Publisher
	eventProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Connect Redis for search rate limiting when configured. A missing or
	// unreachable Redis disables the limiter, it never blocks startup.
	var redisClient *redis.Client
	if cfg.SearchRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; search rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; search rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; search rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the core application service with its dependencies.
	transferService := app.NewService(
		repository,
		phone.NewNormalizer(cfg.PhoneHomeRegion),
		producer,
		time.Duration(cfg.SearchTimeoutSeconds)*time.Second,
		time.Duration(cfg.SearchDebounceMillis)*time.Millisecond,
		cfg.MinTransfer(),
		cfg.MaxNoteLength,
	)
	if redisClient != nil {
		transferService.SetSearchRateLimiter(
			app.NewRedisSearchRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.SearchRateLimitPerMinute,
		)
	}

	// Initialize the API handlers and mount the routes.
	transferHandlers := api.NewTransferHandlers(transferService)
	router := chi.NewRouter()
	router.Mount("/", api.TransferRoutes(transferHandlers, cfg.SupabaseJWTSecret))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
