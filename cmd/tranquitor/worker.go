package main

import (
	"errors"
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/obiente/tranquitor/internal/config"
	"github.com/obiente/tranquitor/internal/pipeline"
	"github.com/obiente/tranquitor/internal/queue"
)

func runWorker(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	fs.StringVar(&cfg.AMQPURL, "amqp", cfg.AMQPURL, "RabbitMQ URL")
	fs.StringVar(&cfg.JobQueue, "jobs", cfg.JobQueue, "Job queue name")
	fs.StringVar(&cfg.ResultQueue, "results", cfg.ResultQueue, "Result queue name")
	fs.Parse(args)

	orch, release, err := pipeline.New(cfg, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("backend setup failed")
		return 1
	}
	defer release()

	consumer, err := queue.NewConsumer(cfg.AMQPURL, cfg.JobQueue)
	if err != nil {
		log.Error().Err(err).Msg("rabbitmq consumer")
		return 1
	}
	defer consumer.Close()
	producer, err := queue.NewProducer(cfg.AMQPURL)
	if err != nil {
		log.Error().Err(err).Msg("rabbitmq producer")
		return 1
	}
	defer producer.Close()

	ctx, cancel := interrupts(nil)
	defer cancel()
	deliveries, err := consumer.Deliveries(ctx)
	if err != nil {
		log.Error().Err(err).Msg("consume")
		return 1
	}

	w := &queue.Worker{
		Runner:      orch,
		Publisher:   producer,
		ResultQueue: cfg.ResultQueue,
		Defaults:    pipeline.OptionsFrom(cfg),
		Log:         log.Logger,
	}
	log.Info().Str("queue", cfg.JobQueue).Msg("worker started")
	if err := w.Serve(ctx, deliveries); err != nil && !errors.Is(err, ctx.Err()) {
		log.Error().Err(err).Msg("worker stopped")
		return 1
	}
	return 0
}
