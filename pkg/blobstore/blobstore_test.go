package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
)

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	info, err := m.Put(ctx, "consultations/a/cbc.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)

	_, err = m.Put(ctx, "consultations/a/cbc.pdf", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, ErrExists)

	got, rc, err := m.Get(ctx, "consultations/a/cbc.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "application/pdf", got.ContentType)

	url, err := m.PresignGet(ctx, "consultations/a/cbc.pdf", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory:///consultations/a/cbc.pdf?expires="))

	require.NoError(t, m.Delete(ctx, "consultations/a/cbc.pdf"))
	_, _, err = m.Get(ctx, "consultations/a/cbc.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.PresignGet(ctx, "consultations/a/cbc.pdf", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.BlobConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(context.Background(), config.BlobConfig{Driver: "ftp"})
	assert.Error(t, err)

	_, err = NewS3(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestNewS3_StaticCredentials(t *testing.T) {
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "attachments",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)

	url, err := s.PresignGet(context.Background(), "consultations/x/scan.png", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "localhost:9000/attachments/consultations/x/scan.png")
	assert.Contains(t, url, "X-Amz-Expires=300")
}
