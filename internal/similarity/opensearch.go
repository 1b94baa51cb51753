// Package similarity implements the vector store used by the personalization
// engine. Event text embeddings are indexed as training entries in OpenSearch;
// new events are matched against them with a filtered kNN query scoped to the
// owning user.
package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"schedassist/internal/config"
	"schedassist/internal/types"
)

// minMatchScore is the similarity floor below which a nearest neighbor is not
// considered a match.
const minMatchScore = 0.75

// Index is an OpenSearch-backed training-entry store.
type Index struct {
	client *opensearch.Client
	index  string
	log    *slog.Logger
}

// NewIndex creates an Index from the search configuration.
func NewIndex(cfg config.SearchConfig, log *slog.Logger) (*Index, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password.Unmask(),
	})
	if err != nil {
		return nil, fmt.Errorf("similarity: failed to create search client: %w", err)
	}
	return &Index{client: client, index: cfg.TrainingIndex, log: log}, nil
}

// knnQuery is the filtered kNN search body. The term filter restricts
// candidates to the requesting user before the vector comparison runs.
type knnQuery struct {
	Size  int `json:"size"`
	Query struct {
		Bool struct {
			Filter struct {
				Term map[string]string `json:"term"`
			} `json:"filter"`
			Must []struct {
				KNN map[string]knnClause `json:"knn"`
			} `json:"must"`
		} `json:"bool"`
	} `json:"query"`
}

type knnClause struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID    string  `json:"_id"`
			Score float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchNearest returns the event ID of the user's most similar training
// entry. The second return value is false when no neighbor exists or the best
// neighbor scores below the match floor.
func (i *Index) SearchNearest(ctx context.Context, userID string, vector []float32) (string, bool, error) {
	var q knnQuery
	q.Size = 1
	q.Query.Bool.Filter.Term = map[string]string{"userId": userID}
	q.Query.Bool.Must = []struct {
		KNN map[string]knnClause `json:"knn"`
	}{
		{KNN: map[string]knnClause{"embeddings": {Vector: vector, K: 1}}},
	}

	body, err := json.Marshal(q)
	if err != nil {
		return "", false, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal knn query", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return "", false, types.NewAppError(types.ErrCodeUpstreamSearch, "knn search request failed", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return "", false, types.NewAppErrorWithDetails(types.ErrCodeUpstreamSearch,
			"knn search returned error status", nil,
			map[string]any{"status": res.StatusCode, "body": string(msg)})
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", false, types.NewAppError(types.ErrCodeUpstreamSearch, "failed to decode knn search response", err)
	}

	if len(parsed.Hits.Hits) == 0 {
		return "", false, nil
	}
	best := parsed.Hits.Hits[0]
	if best.Score < minMatchScore {
		i.log.InfoContext(ctx, "nearest neighbor below match floor",
			"user_id", userID,
			"event_id", best.ID,
			"score", best.Score,
		)
		return "", false, nil
	}
	return best.ID, true, nil
}

// AddTrainingEntry indexes a training entry keyed by its event ID. Re-adding
// the same event overwrites the existing document, so recording is idempotent.
func (i *Index) AddTrainingEntry(ctx context.Context, entry types.TrainingEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal training entry", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      i.index,
		DocumentID: entry.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamSearch, "failed to index training entry", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamSearch,
			"indexing training entry returned error status", nil,
			map[string]any{"status": res.StatusCode, "body": string(msg), "event_id": entry.ID})
	}
	return nil
}

// DeleteTrainingEntry removes a training entry by event ID. Deleting an absent
// entry is not an error: stale-reference healing may race with other runs.
func (i *Index) DeleteTrainingEntry(ctx context.Context, eventID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      i.index,
		DocumentID: eventID,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamSearch, "failed to delete training entry", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(res.Body)
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamSearch,
			"deleting training entry returned error status", nil,
			map[string]any{"status": res.StatusCode, "body": string(msg), "event_id": eventID})
	}
	return nil
}
