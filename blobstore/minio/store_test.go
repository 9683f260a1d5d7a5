package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/shmimg/blobstore"
	"github.com/hupe1980/shmimg/internal/hash"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "bucket", "cameras/")
	assert.Equal(t, "cameras/front.shmimg", s.key("front.shmimg"))

	s = NewStore(nil, "bucket", "")
	assert.Equal(t, "front.shmimg", s.key("front.shmimg"))
}

// TestMinioStore_Integration requires a running MinIO instance.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-shmimg"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.bin", data))

	info, err := client.StatObject(ctx, bucket, "test-prefix/test.bin", minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, hash.CRC32CBase64(hash.CRC32C(data)), info.UserMetadata[ChecksumMetaKey])

	b, err := store.Open(ctx, "test.bin")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, len(data))
	n, err := b.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := b.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, b.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.bin")

	require.NoError(t, store.Delete(ctx, "test.bin"))
	_, err = store.Open(ctx, "test.bin")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	w, err := store.Create(ctx, "stream.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err = store.Open(ctx, "stream.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(13), b.Size())
	require.NoError(t, b.Close())

	_ = store.Delete(ctx, "stream.bin")
}
