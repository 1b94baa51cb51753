// Package stage implements the object-stage claim check between the scheduling
// pipeline and the external planner. Planning payloads are staged as JSON
// objects in S3; the solver callback references them by key, and materialized
// solutions are re-staged under a processed key for the downstream worker.
package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"schedassist/internal/types"
)

// stageContentType is the content type of every staged object. The external
// planner reads these objects directly, so the bodies must stay plain JSON.
const stageContentType = "application/json"

// S3API abstracts the S3 operations used by the stage for testability.
// Production code uses the *s3.Client from aws-sdk-go-v2.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PlanningKey is the stage key for a fresh planning payload.
func PlanningKey(hostID, singletonID string) string {
	return fmt.Sprintf("%s/%s.json", hostID, singletonID)
}

// ReplanKey is the stage key for a replan payload, carrying the event being
// replanned in the key so operators can spot replans in the bucket listing.
func ReplanKey(hostID, singletonID, eventID string) string {
	return fmt.Sprintf("%s/%s_REPLAN_%s.json", hostID, singletonID, eventID)
}

// ProcessedKey is the stage key for a materialized solution payload.
func ProcessedKey(hostID, singletonID string) string {
	return fmt.Sprintf("%s/%s_processed.json", hostID, singletonID)
}

// ObjectStage stores and retrieves JSON documents in the stage bucket.
type ObjectStage struct {
	client S3API
	bucket string
	log    *slog.Logger
}

// NewObjectStage creates an ObjectStage writing to the given bucket.
func NewObjectStage(client S3API, bucket string, log *slog.Logger) *ObjectStage {
	return &ObjectStage{
		client: client,
		bucket: bucket,
		log:    log,
	}
}

// Put marshals v and writes it under key.
func (s *ObjectStage) Put(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal staged payload", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(stageContentType),
	})
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamStage,
			"failed to stage payload", err, map[string]any{"key": key})
	}

	s.log.InfoContext(ctx, "payload staged",
		"bucket", s.bucket,
		"key", key,
		"bytes", len(body),
	)
	return nil
}

// Get reads the object at key and unmarshals it into dst. A missing object is
// reported as a not-found AppError so callers can treat it as a stale claim
// check rather than an infrastructure failure.
func (s *ObjectStage) Get(ctx context.Context, key string, dst any) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return types.NewAppErrorWithDetails(types.ErrCodeNotFoundStagedPayload,
				"staged payload not found", err, map[string]any{"key": key})
		}
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamStage,
			"failed to fetch staged payload", err, map[string]any{"key": key})
	}
	defer out.Body.Close()

	if err := json.NewDecoder(out.Body).Decode(dst); err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeInternalUnexpected,
			"failed to decode staged payload", err, map[string]any{"key": key})
	}
	return nil
}

// Delete removes the object at key. Deleting an absent key is not an error.
func (s *ObjectStage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamStage,
			"failed to delete staged payload", err, map[string]any{"key": key})
	}
	return nil
}

// Take reads the object at key into dst and then deletes it, consuming the
// claim check. The read happens first: if decoding fails the object is left in
// place for inspection.
func (s *ObjectStage) Take(ctx context.Context, key string, dst any) error {
	if err := s.Get(ctx, key, dst); err != nil {
		return err
	}
	if err := s.Delete(ctx, key); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "staged payload consumed", "bucket", s.bucket, "key", key)
	return nil
}
