// Package metrics emits pipeline telemetry to CloudWatch. Metric publishing
// is always best-effort: a publish failure is logged and never fails the
// operation that produced the metric.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted by the pipeline.
const (
	MetricRequestProcessed    = "ScheduleRequestProcessed"
	MetricRequestFailed       = "ScheduleRequestFailed"
	MetricPayloadStaged       = "PlanningPayloadStaged"
	MetricSolutionRejected    = "SolutionRejected"
	MetricSolutionRepublished = "SolutionRepublished"
	MetricScheduleQueueLag    = "ScheduleQueueLag"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Publisher emits count and latency metrics to a CloudWatch namespace.
type Publisher struct {
	client    CloudWatchClient
	namespace string
	log       *slog.Logger
}

// NewPublisher creates a Publisher for the given namespace.
func NewPublisher(client CloudWatchClient, namespace string, log *slog.Logger) *Publisher {
	return &Publisher{
		client:    client,
		namespace: namespace,
		log:       log,
	}
}

// Count emits a count-of-one datum for the named metric. Safe on a nil
// Publisher, which drops the datum.
func (p *Publisher) Count(ctx context.Context, name string) {
	if p == nil {
		return
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	}

	if _, err := p.client.PutMetricData(ctx, input); err != nil {
		p.log.WarnContext(ctx, "failed to publish count metric",
			"metric", name,
			"error", err,
		)
	}
}

// QueueLag emits the time between message production and processing start,
// in milliseconds. Safe on a nil Publisher.
func (p *Publisher) QueueLag(ctx context.Context, lag time.Duration) {
	if p == nil {
		return
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricScheduleQueueLag),
				Value:      aws.Float64(float64(lag.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
			},
		},
	}

	if _, err := p.client.PutMetricData(ctx, input); err != nil {
		p.log.WarnContext(ctx, "failed to publish queue lag metric",
			"lag_ms", lag.Milliseconds(),
			"error", err,
		)
	}
}
