package assist

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"schedassist/internal/metrics"
	"schedassist/internal/types"
)

// Worker is the schedule-request message handler: it validates the incoming
// request, aggregates the host's window, personalizes unlinked events, and
// hands the result to the assembler.
type Worker struct {
	aggregator *Aggregator
	engine     *Engine
	assembler  *Assembler
	validate   *validator.Validate
	metrics    *metrics.Publisher
	log        *slog.Logger
}

// NewWorker creates a Worker from the pipeline stages.
func NewWorker(aggregator *Aggregator, engine *Engine, assembler *Assembler, mp *metrics.Publisher, log *slog.Logger) *Worker {
	return &Worker{
		aggregator: aggregator,
		engine:     engine,
		assembler:  assembler,
		validate:   validator.New(),
		metrics:    mp,
		log:        log,
	}
}

// ProcessMessage handles one schedule-request message body. Any returned
// error leaves the message uncommitted so the broker redelivers it.
func (w *Worker) ProcessMessage(ctx context.Context, body []byte) error {
	var req types.ScheduleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON,
			"schedule request is not valid JSON", err)
	}
	if err := w.validate.Struct(req); err != nil {
		return types.NewAppError(types.ErrCodeValidationMissingField,
			"schedule request is missing required fields", err)
	}

	ctx = types.WithHostID(ctx, req.UserID)
	ctx = types.WithRequestID(ctx, uuid.New().String())

	w.log.InfoContext(ctx, "processing schedule request",
		"host_id", req.UserID,
		"window_start", req.WindowStartDate,
		"window_end", req.WindowEndDate,
		"is_replan", req.IsReplan,
	)

	agg, err := w.aggregator.Aggregate(ctx, req)
	if err != nil {
		w.metrics.Count(ctx, metrics.MetricRequestFailed)
		return err
	}

	personalized := make([]types.Event, 0, len(agg.UnlinkedEvents))
	var reminders []types.Reminder
	var buffers []types.Event
	for _, ev := range agg.UnlinkedEvents {
		out, err := w.engine.ProcessEvent(ctx, ev)
		if err != nil {
			w.metrics.Count(ctx, metrics.MetricRequestFailed)
			return err
		}
		personalized = append(personalized, out.Event)
		reminders = append(reminders, out.Reminders...)
		buffers = append(buffers, out.BufferTimes...)
	}

	_, fileKey, err := w.assembler.Assemble(ctx, AssembleInput{
		Request:      req,
		Agg:          agg,
		Personalized: personalized,
		Reminders:    reminders,
		BufferTimes:  buffers,
	})
	if err != nil {
		w.metrics.Count(ctx, metrics.MetricRequestFailed)
		return err
	}

	w.metrics.Count(ctx, metrics.MetricRequestProcessed)
	w.metrics.Count(ctx, metrics.MetricPayloadStaged)
	w.log.InfoContext(ctx, "schedule request processed",
		"host_id", req.UserID,
		"file_key", fileKey,
	)
	return nil
}
