package external

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"schedassist/internal/config"
	"schedassist/internal/types"
)

// EmbeddingsClient converts event text into vectors via the configured
// embeddings provider. The wire format follows the OpenAI embeddings API.
type EmbeddingsClient struct {
	base   *BaseClient
	url    string
	apiKey config.SecretString
	model  string
}

// NewEmbeddingsClient creates an EmbeddingsClient from configuration.
func NewEmbeddingsClient(base *BaseClient, cfg config.EmbeddingsConfig) *EmbeddingsClient {
	return &EmbeddingsClient{
		base:   base,
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal embeddings request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build embeddings request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamEmbeddings, "embeddings request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamEmbeddings,
			"embeddings provider returned error status", nil,
			map[string]any{"status": resp.StatusCode})
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamEmbeddings, "failed to decode embeddings response", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamEmbeddings, "embeddings response contained no vector", nil)
	}
	return parsed.Data[0].Embedding, nil
}
