package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"travelcred/internal/notifier"
	notifiermetrics "travelcred/internal/notifier/metrics"
	amqpsink "travelcred/internal/notifier/sinks/amqp"
	kafkasink "travelcred/internal/notifier/sinks/kafka"
	"travelcred/internal/notifier/sinks/redisstream"
	"travelcred/internal/platform/config"
	platformredis "travelcred/internal/platform/redis"
	httptransport "travelcred/internal/transport/http"
)

// openNotifier starts the event fan-out with every configured sink. Sinks
// already opened are closed if a later one fails.
func openNotifier(ctx context.Context, cfg config.Config, reg prometheus.Registerer, health map[string]httptransport.HealthCheck, logger *slog.Logger) (*notifier.Notifier, error) {
	opts := []notifier.Option{
		notifier.WithBuffer(cfg.Events.Buffer),
		notifier.WithMetrics(notifiermetrics.New(reg)),
	}
	var opened []notifier.Sink
	fail := func(err error) (*notifier.Notifier, error) {
		for _, s := range opened {
			_ = s.Close()
		}
		return nil, err
	}

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if client != nil {
		s := redisstream.New(client, cfg.Redis.Stream, redisstream.WithCloser(client.Close))
		opened = append(opened, s)
		health["redis"] = client.Health
		logger.InfoContext(ctx, "redis stream sink enabled", "stream", cfg.Redis.Stream)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		s, err := kafkasink.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fail(fmt.Errorf("kafka sink: %w", err))
		}
		opened = append(opened, s)
		logger.InfoContext(ctx, "kafka sink enabled", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	if cfg.AMQP.URL != "" {
		s, err := amqpsink.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fail(fmt.Errorf("amqp sink: %w", err))
		}
		opened = append(opened, s)
		logger.InfoContext(ctx, "amqp sink enabled", "exchange", cfg.AMQP.Exchange)
	}

	for _, s := range opened {
		opts = append(opts, notifier.WithSink(s))
	}
	return notifier.New(logger, opts...), nil
}
