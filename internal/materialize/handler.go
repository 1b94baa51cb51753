// Package materialize turns solver callbacks into worker payloads: it gates on
// the solution score, joins the solver output with the staged planning context,
// re-stages the merged document, and republishes the claim check to the broker
// inside a single transaction.
package materialize

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"schedassist/internal/core"
	"schedassist/internal/metrics"
	"schedassist/internal/stage"
	"schedassist/internal/types"
)

// hardScorePattern extracts the hard score from the segment before the first
// "/" of the solver's score string, e.g. "0hard/0medium/-3soft".
var hardScorePattern = regexp.MustCompile(`(-?\d+)hard`)

// PayloadStore is the object-stage surface the materializer needs. Implemented
// by stage.ObjectStage.
type PayloadStore interface {
	Get(ctx context.Context, key string, dst any) error
	Put(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	Take(ctx context.Context, key string, dst any) error
}

// TransactionalPublisher publishes one message and commits the consumer
// group's offsets in the same broker transaction. Implemented by
// broker.TxnProducer.
type TransactionalPublisher interface {
	PublishWithOffsets(ctx context.Context, value []byte) error
}

// Handler serves the solver's solution callback.
type Handler struct {
	store     PayloadStore
	publisher TransactionalPublisher
	metrics   *metrics.Publisher
	log       *slog.Logger
}

// NewHandler creates a solution callback Handler.
func NewHandler(store PayloadStore, publisher TransactionalPublisher, mp *metrics.Publisher, log *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		publisher: publisher,
		metrics:   mp,
		log:       log,
	}
}

// HandleSolution processes POST /v1/solution.
//
// An infeasible solution (negative hard score) is acknowledged with 200 and
// never retried: the staged payload is discarded and nothing is published.
// A feasible solution consumes the staged planning payload, stages the merged
// worker payload under the processed key, and republishes the claim check
// transactionally before answering 202.
func (h *Handler) HandleSolution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cb types.SolutionCallback
	if err := core.DecodeJSON(w, r, &cb); err != nil {
		core.Error(w, r, err)
		return
	}

	hard, scoreKnown := parseHardScore(cb.Score)
	if !scoreKnown {
		h.log.WarnContext(ctx, "solution score missing or unparseable, proceeding",
			"score", cb.Score,
			"host_id", cb.HostID,
		)
	}

	if scoreKnown && hard < 0 {
		h.discardInfeasible(ctx, cb, hard)
		core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{
			"status": "rejected",
		}})
		return
	}

	if cb.HostID == "" || cb.FileKey == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"solution callback requires hostId and fileKey", nil))
		return
	}
	ctx = types.WithHostID(ctx, cb.HostID)

	var payload types.PlanningPayload
	if err := h.store.Take(ctx, cb.FileKey, &payload); err != nil {
		core.Error(w, r, err)
		return
	}

	if payload.HostID != cb.HostID || payload.SingletonID == "" {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"staged payload does not match solution callback", nil,
			map[string]any{
				"file_key":         cb.FileKey,
				"callback_host_id": cb.HostID,
				"payload_host_id":  payload.HostID,
			}))
		return
	}

	worker := types.WorkerPayload{
		EventPartList:         cb.EventPartList,
		UserList:              cb.UserList,
		TimeslotList:          cb.TimeslotList,
		Score:                 cb.Score,
		FileKey:               cb.FileKey,
		HostID:                cb.HostID,
		SingletonID:           payload.SingletonID,
		AllEvents:             payload.AllEvents,
		Breaks:                payload.Breaks,
		OldEvents:             payload.OldEvents,
		OldAttendeeEvents:     payload.OldAttendeeEvents,
		NewHostBufferTimes:    payload.NewHostBufferTimes,
		NewHostReminders:      payload.NewHostReminders,
		HostTimezone:          payload.HostTimezone,
		IsReplan:              payload.IsReplan,
		OriginalGoogleEventID: payload.OriginalGoogleEventID,
		OriginalCalendarID:    payload.OriginalCalendarID,
	}

	processedKey := stage.ProcessedKey(cb.HostID, payload.SingletonID)
	if err := h.store.Put(ctx, processedKey, worker); err != nil {
		core.Error(w, r, err)
		return
	}

	msg, err := json.Marshal(types.WorkerMessage{FileKey: processedKey})
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to marshal worker message", err))
		return
	}
	if err := h.publisher.PublishWithOffsets(ctx, msg); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeUpstreamBroker,
			"failed to publish worker message", err))
		return
	}

	h.metrics.Count(ctx, metrics.MetricSolutionRepublished)
	h.log.InfoContext(ctx, "solution materialized",
		"host_id", cb.HostID,
		"singleton_id", payload.SingletonID,
		"processed_key", processedKey,
		"score", cb.Score,
	)
	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: map[string]string{
		"status":  "accepted",
		"fileKey": processedKey,
	}})
}

// discardInfeasible drops the staged payload for a rejected solution. The
// payload read is best-effort, only to attach the singleton ID to the log.
func (h *Handler) discardInfeasible(ctx context.Context, cb types.SolutionCallback, hard int) {
	singletonID := ""
	if cb.FileKey != "" {
		var payload types.PlanningPayload
		if err := h.store.Get(ctx, cb.FileKey, &payload); err == nil {
			singletonID = payload.SingletonID
		}
		if err := h.store.Delete(ctx, cb.FileKey); err != nil {
			h.log.WarnContext(ctx, "failed to delete staged payload for rejected solution",
				"file_key", cb.FileKey,
				"error", err,
			)
		}
	}

	h.metrics.Count(ctx, metrics.MetricSolutionRejected)
	h.log.InfoContext(ctx, "solution rejected, hard constraints violated",
		"host_id", cb.HostID,
		"file_key", cb.FileKey,
		"singleton_id", singletonID,
		"hard_score", hard,
	)
}

// parseHardScore extracts the hard component from a solver score string.
// Returns ok=false when the score is absent or does not carry a hard segment.
func parseHardScore(score string) (int, bool) {
	if score == "" {
		return 0, false
	}
	head := strings.SplitN(score, "/", 2)[0]
	m := hardScorePattern.FindStringSubmatch(head)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
