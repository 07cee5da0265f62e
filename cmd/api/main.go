package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-settlement/config"
	httpHandler "marketplace-settlement/internal/adapter/http/handler"
	"marketplace-settlement/internal/adapter/messaging/kafka"
	"marketplace-settlement/internal/adapter/storage/memory"
	pgStorage "marketplace-settlement/internal/adapter/storage/postgres"
	redisStorage "marketplace-settlement/internal/adapter/storage/redis"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/internal/service"
	"marketplace-settlement/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// repositories is one storage driver's implementation of the repository ports.
type repositories struct {
	transactor ports.DBTransactor
	wallets    ports.WalletRepository
	ledger     ports.LedgerRepository
	products   ports.ProductRepository
	addresses  ports.AddressRepository
	carts      ports.CartRepository
	orders     ports.OrderRepository
	outbox     ports.OutboxRepository
	audit      ports.AuditRepository
	health     ports.HealthChecker
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		store := memory.NewStore(cfg.Database.LockTimeout)
		log.Warn().Msg("Using in-memory storage; data is lost on exit")
		return &repositories{
			transactor: store,
			wallets:    memory.NewWalletRepo(store),
			ledger:     memory.NewLedgerRepo(store),
			products:   memory.NewProductRepo(store),
			addresses:  memory.NewAddressRepo(store),
			carts:      memory.NewCartRepo(store),
			orders:     memory.NewOrderRepo(store),
			outbox:     memory.NewOutboxRepo(store),
			audit:      memory.NewAuditRepo(store),
			health:     store,
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("PostgreSQL connected")

	return &repositories{
		transactor: pgStorage.NewTransactor(pool, cfg.Database.LockTimeout),
		wallets:    pgStorage.NewWalletRepo(pool),
		ledger:     pgStorage.NewLedgerRepo(pool),
		products:   pgStorage.NewProductRepo(pool),
		addresses:  pgStorage.NewAddressRepo(pool),
		carts:      pgStorage.NewCartRepo(pool),
		orders:     pgStorage.NewOrderRepo(pool),
		outbox:     pgStorage.NewOutboxRepo(pool),
		audit:      pgStorage.NewAuditRepo(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("api", cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting marketplace settlement API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.close()

	healthCheckers := []ports.HealthChecker{repos.health}

	// Redis backs the rate limiter only. Without it the API runs unthrottled.
	var rateLimiter ports.RateLimiter
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, rate limiting disabled")
	} else {
		defer rdb.Close()
		rateLimiter = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Event publisher: Kafka when brokers are configured, a log sink otherwise.
	var publisher ports.EventPublisher
	if cfg.Kafka.Enabled() {
		publisher = kafka.NewPublisher(cfg.Kafka)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka publisher configured")
	} else {
		publisher = kafka.NewLogPublisher(logger.Component(log, "log-publisher"))
		log.Warn().Msg("No Kafka brokers configured, events go to the log")
	}
	defer publisher.Close()

	relay := service.NewOutboxRelay(repos.outbox, publisher, cfg.Outbox, logger.Component(log, "outbox-relay"))
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	// Core services
	authorizer, err := service.NewStubAuthorizer(cfg.Payment)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure payment authorizer")
	}
	hashSvc := service.NewArgon2HashService(cfg.Wallet)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	walletSvc := service.NewWalletService(
		repos.transactor,
		repos.wallets,
		repos.ledger,
		repos.outbox,
		hashSvc,
		authorizer,
		relay,
		cfg.Kafka.Topics,
		logger.Component(log, "wallet"),
	)
	settlementSvc := service.NewSettlementService(
		repos.transactor,
		repos.orders,
		repos.products,
		repos.addresses,
		repos.carts,
		repos.wallets,
		repos.outbox,
		walletSvc,
		service.NewInventoryGuard(repos.products),
		relay,
		cfg.Kafka.Topics,
		logger.Component(log, "settlement"),
	)
	cartSvc := service.NewCartService(repos.carts, repos.products, logger.Component(log, "cart"))
	orderSvc := service.NewOrderService(repos.transactor, repos.orders, repos.carts, logger.Component(log, "order"))
	auditSvc := service.NewAuditService(repos.audit, logger.Component(log, "audit"))

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		CartSvc:        cartSvc,
		OrderSvc:       orderSvc,
		SettlementSvc:  settlementSvc,
		TokenSvc:       tokenSvc,
		RateLimiter:    rateLimiter,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-relayDone

	log.Info().Msg("Server exited")
}
