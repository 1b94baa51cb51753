package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"schedassist/internal/config"
	"schedassist/internal/types"
)

// TxnProducer publishes materialized-solution messages inside a Kafka
// transaction that also commits the worker consumer group's current offsets.
// The producer is idempotent and allows at most one in-flight produce request
// per broker, so a transaction can never reorder or duplicate writes.
type TxnProducer struct {
	client *kgo.Client
	admin  *kadm.Client
	topic  string
	group  string
	log    *slog.Logger
}

// NewTxnProducer creates a transactional producer for the worker topic.
// The transactional ID must be stable per deployment so the broker fences
// zombie producers from previous incarnations.
func NewTxnProducer(cfg config.KafkaConfig, log *slog.Logger) (*TxnProducer, error) {
	opts := append(clientOpts(cfg),
		kgo.TransactionalID(cfg.TransactionalID),
		kgo.MaxProduceRequestsInflightPerBroker(1),
		// The worker group is configured so transactional offset commits are
		// attributed to the downstream consumer group.
		kgo.ConsumerGroup(cfg.WorkerGroup),
	)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("broker: failed to create transactional producer: %w", err)
	}

	return &TxnProducer{
		client: client,
		admin:  kadm.NewClient(client),
		topic:  cfg.WorkerTopic,
		group:  cfg.WorkerGroup,
		log:    log,
	}, nil
}

// PublishWithOffsets runs the full consume-transform-produce handoff as one
// broker transaction:
//
//  1. Begin the transaction.
//  2. Produce the message to the worker topic.
//  3. Fetch the worker consumer group's committed offsets for the topic.
//  4. Commit those offsets inside the transaction.
//  5. Commit the transaction.
//
// Any failure aborts the transaction, so the message and the offset commit
// become visible together or not at all.
func (p *TxnProducer) PublishWithOffsets(ctx context.Context, value []byte) error {
	if err := p.client.BeginTransaction(); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamBroker, "failed to begin broker transaction", err)
	}

	if err := p.client.ProduceSync(ctx, &kgo.Record{Topic: p.topic, Value: value}).FirstErr(); err != nil {
		return p.abort(ctx, types.NewAppError(types.ErrCodeUpstreamBroker, "failed to produce worker message", err))
	}

	committed, err := p.admin.FetchOffsets(ctx, p.group)
	if err != nil {
		return p.abort(ctx, types.NewAppError(types.ErrCodeUpstreamBroker, "failed to fetch consumer group offsets", err))
	}

	offsets := make(map[string]map[int32]kgo.EpochOffset)
	committed.Each(func(o kadm.OffsetResponse) {
		if o.Err != nil || o.Topic != p.topic || o.At < 0 {
			return
		}
		if offsets[o.Topic] == nil {
			offsets[o.Topic] = make(map[int32]kgo.EpochOffset)
		}
		offsets[o.Topic][o.Partition] = kgo.EpochOffset{
			Epoch:  o.LeaderEpoch,
			Offset: o.At,
		}
	})

	if len(offsets) > 0 {
		done := make(chan error, 1)
		p.client.CommitTransactionOffsets(ctx, offsets,
			func(_ *kmsg.TxnOffsetCommitRequest, _ *kmsg.TxnOffsetCommitResponse, err error) {
				done <- err
			},
		)
		if err := <-done; err != nil {
			return p.abort(ctx, types.NewAppError(types.ErrCodeUpstreamBroker, "failed to commit offsets in transaction", err))
		}
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamBroker, "failed to commit broker transaction", err)
	}

	p.log.InfoContext(ctx, "worker message published transactionally",
		"topic", p.topic,
		"group", p.group,
		"offset_partitions", len(offsets[p.topic]),
	)
	return nil
}

// abort rolls the transaction back and returns the original error. An abort
// failure is logged but never masks the cause.
func (p *TxnProducer) abort(ctx context.Context, cause error) error {
	if err := p.client.EndTransaction(ctx, kgo.TryAbort); err != nil {
		p.log.ErrorContext(ctx, "failed to abort broker transaction", "error", err)
	}
	return cause
}

// Close flushes and shuts down the underlying client.
func (p *TxnProducer) Close() {
	p.client.Close()
}
