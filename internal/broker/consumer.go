// Package broker provides the Kafka transport for the scheduling pipeline: a
// group consumer with manual offset commits for the schedule topic, and a
// transactional producer that republishes materialized solutions atomically
// with a consumer-group offset commit.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	"schedassist/internal/config"
	"schedassist/internal/metrics"
)

// clientOpts builds the kgo options shared by the consumer and the
// transactional producer: seed brokers and optional SASL/PLAIN auth.
func clientOpts(cfg config.KafkaConfig) []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
	}
	if cfg.SASLUsername != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: cfg.SASLUsername,
			Pass: cfg.SASLPassword.Unmask(),
		}.AsMechanism()))
	}
	return opts
}

// Handler processes a single consumed message. A non-nil error leaves the
// record's offset uncommitted so the broker redelivers it.
type Handler func(ctx context.Context, value []byte) error

// Consumer is a consumer-group reader for the schedule topic. Auto-commit is
// disabled: offsets advance only after the handler returns nil, giving
// at-least-once processing with redelivery on failure.
type Consumer struct {
	client  *kgo.Client
	metrics *metrics.Publisher
	log     *slog.Logger
}

// NewConsumer creates a group consumer for the given topic and group.
func NewConsumer(cfg config.KafkaConfig, topic, group string, mp *metrics.Publisher, log *slog.Logger) (*Consumer, error) {
	opts := append(clientOpts(cfg),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("broker: failed to create consumer client: %w", err)
	}

	return &Consumer{client: client, metrics: mp, log: log}, nil
}

// Run polls the broker until ctx is cancelled, invoking handle for each record
// in order within a partition. Handler failures are logged and the offset is
// not committed; processing continues with the next record so one poison
// message cannot stall the partition beyond its redelivery.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.ErrorContext(ctx, "fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			c.observeLag(ctx, rec)
			if err := handle(ctx, rec.Value); err != nil {
				c.log.ErrorContext(ctx, "message processing failed, offset not committed",
					"topic", rec.Topic,
					"partition", rec.Partition,
					"offset", rec.Offset,
					"error", err,
				)
				return
			}
			if err := c.client.CommitRecords(ctx, rec); err != nil {
				c.log.ErrorContext(ctx, "failed to commit offset",
					"topic", rec.Topic,
					"partition", rec.Partition,
					"offset", rec.Offset,
					"error", err,
				)
			}
		})
	}
}

// observeLag emits the time between a record's production and its processing
// start. Records without a broker timestamp are skipped.
func (c *Consumer) observeLag(ctx context.Context, rec *kgo.Record) {
	if rec.Timestamp.IsZero() {
		return
	}
	c.metrics.QueueLag(ctx, time.Since(rec.Timestamp))
}

// Close flushes and shuts down the underlying client.
func (c *Consumer) Close() {
	c.client.Close()
}
