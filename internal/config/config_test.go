package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tabrecall/backend/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		MaxChunkSize:       1000,
		ChunkOverlap:       100,
		ChunkThreshold:     5000,
		MinContentLength:   50,
		EmbeddingDimension: 1536,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"Valid", func(c *config.Config) {}, false},
		{"Zero Overlap OK", func(c *config.Config) { c.ChunkOverlap = 0 }, false},
		{"Chunk Size Zero", func(c *config.Config) { c.MaxChunkSize = 0 }, true},
		{"Overlap Equals Chunk Size", func(c *config.Config) { c.ChunkOverlap = 1000 }, true},
		{"Negative Overlap", func(c *config.Config) { c.ChunkOverlap = -1 }, true},
		{"Zero Dimension", func(c *config.Config) { c.EmbeddingDimension = 0 }, true},
		{"Negative Min Content", func(c *config.Config) { c.MinContentLength = -1 }, true},
		{"Threshold Below Chunk Size", func(c *config.Config) { c.ChunkThreshold = 500 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, config.ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)

	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, "TabDocument", cfg.WeaviateClass)
	assert.Equal(t, 20000, cfg.MaxContentLength)
	assert.Equal(t, 1000, cfg.MaxChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 5000, cfg.ChunkThreshold)
	assert.Equal(t, 50, cfg.MinContentLength)
	assert.Equal(t, 1536, cfg.EmbeddingDimension)
	assert.False(t, cfg.EnableEvents)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8090")
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("SYNC_DELAY", "50ms")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 8090, cfg.ServerPort)
	assert.Equal(t, "gemini", cfg.EmbeddingProvider)
	assert.Equal(t, "50ms", cfg.SyncDelay.String())
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("CHUNK_OVERLAP", "1000")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrInvalid)
}
