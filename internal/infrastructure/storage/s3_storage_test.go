package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/pos/internal/infrastructure/config"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 keeps objects in memory
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	ctypes    map[string]string
	bucketUp  bool
	putErr    error
	getErr    error
	createErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), ctypes: make(map[string]string)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.ctypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketUp {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func (f *fakeS3) CreateBucket(_ context.Context, _ *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.bucketUp = true
	return &s3.CreateBucketOutput{}, nil
}

func TestNewS3Backend_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Backend(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3Backend(ctx, &config.S3Config{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half of a key pair returns error", func(t *testing.T) {
		_, err := NewS3Backend(ctx, &config.S3Config{Bucket: "pos", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "set together")
	})

	t.Run("valid config creates backend", func(t *testing.T) {
		backend, err := NewS3Backend(ctx, &config.S3Config{
			Endpoint:     "localhost:9000",
			Bucket:       "pos",
			Prefix:       "/store-1/",
			AccessKey:    "k",
			SecretKey:    "s",
			UsePathStyle: true,
		}, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "pos", backend.Bucket())
		assert.Equal(t, "store-1/users.json", backend.Key("users.json"))
	})
}

func TestS3Backend_ReadWrite(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	backend := newS3Backend(fake, "pos", WithPrefix("till"))

	_, err := backend.Read(ctx, "users.json")
	assert.ErrorIs(t, err, persistence.ErrBlobNotFound)

	require.NoError(t, backend.Write(ctx, "users.json", []byte(`{"version":1}`)))

	data, err := backend.Read(ctx, "users.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))
	assert.Equal(t, "application/json", fake.ctypes["till/users.json"])
}

func TestS3Backend_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.getErr = errors.New("connection reset")
	fake.putErr = errors.New("access denied")
	backend := newS3Backend(fake, "pos")

	_, err := backend.Read(ctx, "users.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, persistence.ErrBlobNotFound)

	err = backend.Write(ctx, "users.json", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Backend_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing bucket", func(t *testing.T) {
		fake := newFakeS3()
		require.NoError(t, newS3Backend(fake, "pos").EnsureBucket(ctx))
		assert.True(t, fake.bucketUp)
	})

	t.Run("tolerates bucket owned by caller", func(t *testing.T) {
		fake := newFakeS3()
		fake.createErr = &types.BucketAlreadyOwnedByYou{}
		assert.NoError(t, newS3Backend(fake, "pos").EnsureBucket(ctx))
	})

	t.Run("existing bucket", func(t *testing.T) {
		fake := newFakeS3()
		fake.bucketUp = true
		assert.NoError(t, newS3Backend(fake, "pos").EnsureBucket(ctx))
	})
}

func TestS3Backend_EntityStore(t *testing.T) {
	ctx := context.Background()
	backend := newS3Backend(newFakeS3(), "pos")
	store := persistence.NewEntityStore[string]("notes", backend, persistence.YAMLCodec{}, nil)

	require.NoError(t, store.Save(ctx, []string{"a", "b"}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("users.json"))
	assert.Equal(t, "application/yaml", contentType("users.yaml"))
	assert.Equal(t, "application/octet-stream", contentType("users"))
}
