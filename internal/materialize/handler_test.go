package materialize

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedassist/internal/types"
)

type fakeStore struct {
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) stage(key string, v any) {
	body, _ := json.Marshal(v)
	f.objects[key] = body
}

func (f *fakeStore) Get(_ context.Context, key string, dst any) error {
	body, ok := f.objects[key]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundStagedPayload, "staged payload not found", nil)
	}
	return json.Unmarshal(body, dst)
}

func (f *fakeStore) Put(_ context.Context, key string, v any) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.stage(key, v)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) Take(ctx context.Context, key string, dst any) error {
	if err := f.Get(ctx, key, dst); err != nil {
		return err
	}
	return f.Delete(ctx, key)
}

type fakePublisher struct {
	published [][]byte
	err       error
}

func (f *fakePublisher) PublishWithOffsets(_ context.Context, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, value)
	return nil
}

func newTestHandler(store *fakeStore, pub *fakePublisher) *Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, pub, nil, log)
}

func postSolution(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/solution", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.HandleSolution(rec, req)
	return rec
}

func TestParseHardScore(t *testing.T) {
	tests := []struct {
		score  string
		want   int
		wantOK bool
	}{
		{"0hard/0medium/-3soft", 0, true},
		{"-2hard/0medium/0soft", -2, true},
		{"15hard/1medium/2soft", 15, true},
		{"", 0, false},
		{"garbage", 0, false},
		{"0medium/0soft", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			got, ok := parseHardScore(tt.score)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleSolutionInfeasibleAcknowledged(t *testing.T) {
	store := newFakeStore()
	store.stage("host-1/sing-1.json", types.PlanningPayload{SingletonID: "sing-1", HostID: "host-1"})
	pub := &fakePublisher{}
	h := newTestHandler(store, pub)

	rec := postSolution(t, h, types.SolutionCallback{
		Score:   "-5hard/0medium/0soft",
		HostID:  "host-1",
		FileKey: "host-1/sing-1.json",
	})

	assert.Equal(t, http.StatusOK, rec.Code, "infeasible solutions are acknowledged, never retried")
	assert.Empty(t, pub.published, "nothing published for a rejected solution")
	assert.Contains(t, store.deleted, "host-1/sing-1.json", "staged payload discarded")
}

func TestHandleSolutionMissingIdentifiers(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakePublisher{})

	rec := postSolution(t, h, types.SolutionCallback{
		Score: "0hard/0medium/0soft",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSolutionFeasibleRepublished(t *testing.T) {
	store := newFakeStore()
	store.stage("host-1/sing-1.json", types.PlanningPayload{
		SingletonID:  "sing-1",
		HostID:       "host-1",
		HostTimezone: "America/New_York",
		AllEvents:    []types.Event{{ID: "ev-1", UserID: "host-1"}},
		OldEvents:    []types.Event{{ID: "ev-old", UserID: "host-1"}},
	})
	pub := &fakePublisher{}
	h := newTestHandler(store, pub)

	rec := postSolution(t, h, types.SolutionCallback{
		Score:   "0hard/0medium/-3soft",
		HostID:  "host-1",
		FileKey: "host-1/sing-1.json",
		EventPartList: []types.EventPart{
			{GroupID: "ev-1", EventID: "ev-1", Part: 1, LastPart: 1, UserID: "host-1", HostID: "host-1"},
		},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)

	assert.NotContains(t, store.objects, "host-1/sing-1.json", "original claim check consumed")

	processedKey := "host-1/sing-1_processed.json"
	require.Contains(t, store.objects, processedKey)

	var worker types.WorkerPayload
	require.NoError(t, json.Unmarshal(store.objects[processedKey], &worker))
	assert.Equal(t, "sing-1", worker.SingletonID)
	assert.Equal(t, "America/New_York", worker.HostTimezone)
	assert.Len(t, worker.EventPartList, 1)
	assert.Len(t, worker.OldEvents, 1)

	require.Len(t, pub.published, 1)
	var msg types.WorkerMessage
	require.NoError(t, json.Unmarshal(pub.published[0], &msg))
	assert.Equal(t, processedKey, msg.FileKey)
}

func TestHandleSolutionHostMismatch(t *testing.T) {
	store := newFakeStore()
	store.stage("host-1/sing-1.json", types.PlanningPayload{SingletonID: "sing-1", HostID: "someone-else"})
	pub := &fakePublisher{}
	h := newTestHandler(store, pub)

	rec := postSolution(t, h, types.SolutionCallback{
		Score:   "0hard/0medium/0soft",
		HostID:  "host-1",
		FileKey: "host-1/sing-1.json",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, pub.published)
}

func TestHandleSolutionMissingPayload(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakePublisher{})

	rec := postSolution(t, h, types.SolutionCallback{
		Score:   "0hard/0medium/0soft",
		HostID:  "host-1",
		FileKey: "host-1/missing.json",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSolutionUnparseableScoreProceeds(t *testing.T) {
	store := newFakeStore()
	store.stage("host-1/sing-1.json", types.PlanningPayload{SingletonID: "sing-1", HostID: "host-1"})
	pub := &fakePublisher{}
	h := newTestHandler(store, pub)

	rec := postSolution(t, h, types.SolutionCallback{
		HostID:  "host-1",
		FileKey: "host-1/sing-1.json",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code, "missing score is logged and treated as feasible")
	assert.Len(t, pub.published, 1)
}

func TestHandleSolutionPublishFailure(t *testing.T) {
	store := newFakeStore()
	store.stage("host-1/sing-1.json", types.PlanningPayload{SingletonID: "sing-1", HostID: "host-1"})
	pub := &fakePublisher{err: types.NewAppError(types.ErrCodeUpstreamBroker, "broker down", nil)}
	h := newTestHandler(store, pub)

	rec := postSolution(t, h, types.SolutionCallback{
		Score:   "0hard/0medium/0soft",
		HostID:  "host-1",
		FileKey: "host-1/sing-1.json",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
