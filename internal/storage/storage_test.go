package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/ikkim/udonggeum-storefront/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLBuilder_URL(t *testing.T) {
	cdn := NewURLBuilder("https://cdn.example.com/", "bucket", "ap-northeast-2", "/static/placeholder.png")
	direct := NewURLBuilder("", "bucket", "ap-northeast-2", "/static/placeholder.png")

	tests := []struct {
		name    string
		builder *URLBuilder
		key     string
		want    string
	}{
		{name: "CDN base", builder: cdn, key: "products/ring.jpg", want: "https://cdn.example.com/products/ring.jpg"},
		{name: "Direct S3", builder: direct, key: "/products/ring.jpg", want: "https://bucket.s3.ap-northeast-2.amazonaws.com/products/ring.jpg"},
		{name: "Absolute passthrough", builder: cdn, key: "https://img.example.com/a.png", want: "https://img.example.com/a.png"},
		{name: "Empty key", builder: cdn, key: "  ", want: "/static/placeholder.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.builder.URL(tt.key))
		})
	}
}

func TestURLBuilder_URLsFallsBackToPlaceholder(t *testing.T) {
	b := NewURLBuilder("https://cdn.example.com", "bucket", "ap-northeast-2", "/static/placeholder.png")

	assert.Equal(t, []string{"/static/placeholder.png"}, b.URLs(nil))
	assert.Equal(t, []string{"/static/placeholder.png"}, b.URLs([]string{"", " "}))
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, b.URLs([]string{"", "a.jpg"}))
}

func TestS3Storage_PresignUpload(t *testing.T) {
	s := NewS3Storage(context.Background(), config.S3Config{
		Region:          "ap-northeast-2",
		Bucket:          "bucket",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		BaseURL:         "https://cdn.example.com",
	})

	up, err := s.PresignUpload(context.Background(), "Ring.JPG", "image/jpeg", "products")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, "products/"))
	assert.True(t, strings.HasSuffix(up.Key, ".jpg"))
	assert.Equal(t, "https://cdn.example.com/"+up.Key, up.FileURL)
	assert.Contains(t, up.UploadURL, "X-Amz-Signature=")
	assert.Contains(t, up.UploadURL, up.Key)
}

func TestS3Storage_PresignUploadValidation(t *testing.T) {
	s := NewS3Storage(context.Background(), config.S3Config{
		Region: "ap-northeast-2", Bucket: "bucket", AccessKeyID: "AKIATEST", SecretAccessKey: "secret",
	})

	_, err := s.PresignUpload(context.Background(), "doc.pdf", "application/pdf", "products")
	assert.ErrorIs(t, err, ErrContentTypeNotAllowed)

	_, err = s.PresignUpload(context.Background(), "a.png", "image/png", "../etc")
	assert.ErrorIs(t, err, ErrInvalidFolder)
}
