package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/adapter/messaging/kafka"
	redisStorage "marketplace-settlement/internal/adapter/storage/redis"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/internal/service"
	"marketplace-settlement/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// binding routes one topic to a deduplicated handler.
type binding struct {
	topic    string
	consumer string
	handler  service.EnvelopeHandler
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("consumer", cfg.Log.Level, cfg.Log.Pretty)

	if !cfg.Kafka.Enabled() {
		log.Fatal().Msg("kafka.brokers is empty; nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	dedupe := service.NewDeduplicator(redisStorage.NewDedupeStore(rdb), cfg.Outbox.DedupeTTL, logger.Component(log, "dedupe"))
	inventory := service.NewInventorySync(redisStorage.NewStockMirror(rdb), cfg.Outbox.DedupeTTL, logger.Component(log, "inventory-sync"))
	notifier := service.NewNotifier(logger.Component(log, "notifier"))

	topics := cfg.Kafka.Topics
	bindings := []binding{
		{topic: topics.InventoryUpdates, consumer: service.ConsumerInventorySync, handler: inventory.Handle},
		{topic: topics.SellerNotifications, consumer: service.ConsumerNotifications, handler: notifier.Handle},
		{topic: topics.WalletNotifications, consumer: service.ConsumerNotifications, handler: notifier.Handle},
		{topic: topics.TransactionAudit, consumer: service.ConsumerAuditTrail, handler: notifier.Handle},
	}

	var subscriber ports.EventSubscriber = kafka.NewSubscriber(cfg.Kafka, logger.Component(log, "subscriber"))

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("group", cfg.Kafka.ConsumerGroup).
		Int("topics", len(bindings)).
		Msg("Starting event consumers")

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bindings {
		handler := dedupe.Wrap(b.consumer, b.handler)
		topic := b.topic
		g.Go(func() error {
			return subscriber.Consume(gctx, topic, handler)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Consumer stopped with error")
		stop()
		os.Exit(1)
	}

	log.Info().Msg("Consumers exited")
}
