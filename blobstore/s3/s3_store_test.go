package s3

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molvis/molscene/blobstore"
)

// mockS3Client is an in-memory bucket stand-in. Uploads below the manager's
// part size go through PutObject, so the multipart operations stay
// unimplemented.
type mockS3Client struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	if params.Range != nil {
		var start, end int64
		if _, err := fmt.Sscanf(*params.Range, "bytes=%d-%d", &start, &end); err != nil {
			return nil, fmt.Errorf("bad range %q: %w", *params.Range, err)
		}
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
		data = data[start : end+1]
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := aws.ToString(params.Prefix)
	var keys []string
	for key := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func (m *mockS3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by mock")
}

func (m *mockS3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported by mock")
}

func (m *mockS3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by mock")
}

func (m *mockS3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by mock")
}

var _ Client = (*mockS3Client)(nil)

func TestS3StorePutOpenRead(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockS3Client(), "bucket", "scenes/demo")

	data := make([]byte, 4096)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "frame.snap", data))

	blob, err := store.Open(ctx, "frame.snap")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 100)
	n, err := blob.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[:100], buf)

	n, err = blob.ReadAt(buf, 1024)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[1024:1124], buf)

	// Reads overlapping the tail report EOF with the partial count.
	n, err = blob.ReadAt(buf, int64(len(data))-10)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, data[len(data)-10:], buf[:10])
}

func TestS3StoreOpenNotFound(t *testing.T) {
	store := NewStore(newMockS3Client(), "bucket", "scenes/demo")
	_, err := store.Open(context.Background(), "missing.snap")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestS3StoreCreateStreams(t *testing.T) {
	ctx := context.Background()
	client := newMockS3Client()
	store := NewStore(client, "bucket", "scenes/demo")

	w, err := store.Create(ctx, "streamed.snap")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "streamed.snap")
	require.NoError(t, err)
	defer blob.Close()
	got, err := blobstore.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)
}

func TestS3StoreListTrimsPrefix(t *testing.T) {
	ctx := context.Background()

	// Both prefix spellings must yield bare blob names.
	for _, rootPrefix := range []string{"scenes/demo", "scenes/demo/"} {
		client := newMockS3Client()
		store := NewStore(client, "bucket", rootPrefix)

		require.NoError(t, store.Put(ctx, "a.snap", []byte("a")))
		require.NoError(t, store.Put(ctx, "b.snap", []byte("b")))
		require.NoError(t, store.Put(ctx, "nested/c.snap", []byte("c")))

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.snap", "b.snap", "nested/c.snap"}, names, "prefix %q", rootPrefix)

		names, err = store.List(ctx, "nested/")
		require.NoError(t, err)
		assert.Equal(t, []string{"nested/c.snap"}, names, "prefix %q", rootPrefix)
	}
}

func TestS3StoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockS3Client(), "bucket", "scenes/demo")

	require.NoError(t, store.Put(ctx, "gone.snap", []byte("x")))
	require.NoError(t, store.Delete(ctx, "gone.snap"))

	_, err := store.Open(ctx, "gone.snap")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
