package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Server
	ServerPort  int    `envconfig:"SERVER_PORT" default:"3000"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`
	DataDir     string `envconfig:"DATA_DIR" default:"data"`

	// Embedding / answer providers. With no key configured the pipeline stays
	// functional on synthetic embeddings and templated answers.
	EmbeddingProvider     string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	OpenAIAPIKey          string `envconfig:"OPENAI_API_KEY"`
	OpenAIEmbeddingModel  string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	OpenAICompletionModel string `envconfig:"OPENAI_COMPLETION_MODEL" default:"gpt-4-turbo-preview"`
	GeminiAPIKey          string `envconfig:"GEMINI_API_KEY"`
	GeminiEmbeddingModel  string `envconfig:"GEMINI_EMBEDDING_MODEL" default:"gemini-embedding-001"`
	EmbeddingDimension    int    `envconfig:"EMBEDDING_DIMENSION" default:"1536"`
	EmbeddingMaxChars     int    `envconfig:"EMBEDDING_MAX_CHARS" default:"8000"`

	// Remote vector store
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateClass  string `envconfig:"WEAVIATE_CLASS" default:"TabDocument"`

	RemoteTimeout     time.Duration `envconfig:"REMOTE_TIMEOUT" default:"10s"`
	InitRetryAttempts int           `envconfig:"INIT_RETRY_ATTEMPTS" default:"3"`
	InitRetryDelay    time.Duration `envconfig:"INIT_RETRY_DELAY" default:"2s"`

	// Content processing
	MaxContentLength int `envconfig:"MAX_CONTENT_LENGTH" default:"20000"`
	MaxChunkSize     int `envconfig:"MAX_CHUNK_SIZE" default:"1000"`
	ChunkOverlap     int `envconfig:"CHUNK_OVERLAP" default:"100"`
	ChunkThreshold   int `envconfig:"CHUNK_THRESHOLD" default:"5000"`
	MinContentLength int `envconfig:"MIN_CONTENT_LENGTH" default:"50"`

	// Batch sync throttle
	SyncDelay time.Duration `envconfig:"SYNC_DELAY" default:"500ms"`

	// Activity events (optional; disabled when no nsqd is reachable)
	EnableEvents bool   `envconfig:"ENABLE_EVENTS" default:"false"`
	NSQDHost     string `envconfig:"NSQD_HOST" default:"localhost:4150"`
	NSQLookupd   string `envconfig:"NSQ_LOOKUPD" default:"localhost:4161"`

	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
}

func Load() (*Config, error) {
	// Env vars may come from the shell; a missing .env is fine.
	_ = godotenv.Load(".env")
	if cwd, err := os.Getwd(); err == nil {
		_ = godotenv.Load(filepath.Join(cwd, "../.env"))
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: MAX_CHUNK_SIZE must be positive", ErrInvalid)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, MAX_CHUNK_SIZE)", ErrInvalid)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION must be positive", ErrInvalid)
	}
	if c.MinContentLength < 0 {
		return fmt.Errorf("%w: MIN_CONTENT_LENGTH must not be negative", ErrInvalid)
	}
	if c.ChunkThreshold < c.MaxChunkSize {
		return fmt.Errorf("%w: CHUNK_THRESHOLD must be at least MAX_CHUNK_SIZE", ErrInvalid)
	}
	return nil
}
