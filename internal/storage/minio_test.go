package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"deckstamp/internal/config"
)

func TestNewMinIORejectsIncompleteConfig(t *testing.T) {
	full := config.MinIOConfig{Endpoint: "minio:9000", AccessKey: "ak", SecretKey: "sk", Bucket: "originals"}

	tests := []struct {
		name   string
		mutate func(*config.MinIOConfig)
		want   string
	}{
		{"endpoint", func(c *config.MinIOConfig) { c.Endpoint = "" }, "minio endpoint is required"},
		{"access key", func(c *config.MinIOConfig) { c.AccessKey = "" }, "minio credentials are required"},
		{"secret key", func(c *config.MinIOConfig) { c.SecretKey = "" }, "minio credentials are required"},
		{"bucket", func(c *config.MinIOConfig) { c.Bucket = "" }, "minio bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			s, err := NewMinIO(context.Background(), cfg)
			assert.EqualError(t, err, tt.want)
			assert.Nil(t, s)
		})
	}
}
