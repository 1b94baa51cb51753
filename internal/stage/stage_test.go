package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedassist/internal/types"
)

type fakeS3 struct {
	objects map[string][]byte
	deletes []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*params.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *params.Key)
	f.deletes = append(f.deletes, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStage(client S3API) *ObjectStage {
	return NewObjectStage(client, "stage-bucket", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "host-1/sing-1.json", PlanningKey("host-1", "sing-1"))
	assert.Equal(t, "host-1/sing-1_REPLAN_ev-9.json", ReplanKey("host-1", "sing-1", "ev-9"))
	assert.Equal(t, "host-1/sing-1_processed.json", ProcessedKey("host-1", "sing-1"))
}

func TestPutAndGetRoundTrip(t *testing.T) {
	client := newFakeS3()
	st := newTestStage(client)

	payload := types.PlanningPayload{SingletonID: "sing-1", HostID: "host-1", HostTimezone: "UTC"}
	require.NoError(t, st.Put(context.Background(), "host-1/sing-1.json", payload))

	var got types.PlanningPayload
	require.NoError(t, st.Get(context.Background(), "host-1/sing-1.json", &got))
	assert.Equal(t, payload, got)
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	st := newTestStage(newFakeS3())

	var got types.PlanningPayload
	err := st.Get(context.Background(), "host-1/absent.json", &got)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundStagedPayload, appErr.Code)
}

func TestTakeConsumesObject(t *testing.T) {
	client := newFakeS3()
	st := newTestStage(client)

	body, err := json.Marshal(types.PlanningPayload{SingletonID: "sing-1", HostID: "host-1"})
	require.NoError(t, err)
	client.objects["host-1/sing-1.json"] = body

	var got types.PlanningPayload
	require.NoError(t, st.Take(context.Background(), "host-1/sing-1.json", &got))
	assert.Equal(t, "sing-1", got.SingletonID)

	err = st.Get(context.Background(), "host-1/sing-1.json", &got)
	assert.Error(t, err, "claim check consumed")
	assert.Equal(t, []string{"host-1/sing-1.json"}, client.deletes)
}
