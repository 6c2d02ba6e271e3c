package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"textlens/internal/app"
	"textlens/internal/config"
	"textlens/internal/logger"

	"github.com/nsqio/go-nsq"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	application, err := app.New(cfg, deps.DB, deps.VectorStore, deps.NSQProducer, log, nil)
	if err != nil {
		return err
	}

	// Batch analysis worker. Concurrency bounds in-flight remote batches.
	batchConsumer, err := startConsumer(cfg, config.TopicAnalysisBatch, "analysis-worker",
		cfg.AnalysisConcurrency, application.AnalysisConsumer.HandleMessage)
	if err != nil {
		return err
	}
	if batchConsumer != nil {
		defer batchConsumer.Stop()
	}

	if cfg.EnableIndexWorker {
		indexConsumer, err := startConsumer(cfg, config.TopicAnalysisIndex, "indexer",
			1, application.IndexConsumer.HandleMessage)
		if err != nil {
			return err
		}
		if indexConsumer != nil {
			defer indexConsumer.Stop()
		}
	}

	if !cfg.EnableAPI {
		slog.Info("api disabled, running workers only")
		<-ctx.Done()
		return nil
	}

	return application.Run(ctx)
}

func startConsumer(cfg *config.Config, topic, channel string, concurrency int, handle func(*nsq.Message) error) (*nsq.Consumer, error) {
	nsqCfg := nsq.NewConfig()
	if concurrency > 1 {
		nsqCfg.MaxInFlight = concurrency
	}
	consumer, err := nsq.NewConsumer(topic, channel, nsqCfg)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(handle), concurrency)
	// Prefer lookupd, fall back to a direct nsqd connection. A broker that is
	// still starting must not take the API down with it.
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		if err := consumer.ConnectToNSQD(cfg.NSQDHost); err != nil {
			slog.Warn("failed to connect NSQ consumer", "topic", topic, "error", err)
			consumer.Stop()
			return nil, nil
		}
	}
	slog.Info("NSQ consumer connected", "topic", topic, "channel", channel, "concurrency", concurrency)
	return consumer, nil
}
