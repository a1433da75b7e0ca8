package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"tabrecall/backend/internal/adapter/gemini"
	"tabrecall/backend/internal/adapter/openai"
	wstore "tabrecall/backend/internal/adapter/weaviate"
	"tabrecall/backend/internal/config"
	"tabrecall/backend/internal/embedding"
	"tabrecall/backend/internal/index"
	"tabrecall/backend/internal/worker"
)

type Dependencies struct {
	Chain    *index.Chain
	Embedder embedding.Provider
	Chat     ChatClient
	Producer *nsq.Producer
}

// Bootstrap assembles the external adapters. Nothing here dials a remote
// service eagerly; the store chain initializes its remote tier on first use
// and every provider degrades to a local fallback when unconfigured.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	// Embedding provider and completion client.
	var provider embedding.Provider
	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			slog.Warn("no OpenAI API key configured, using synthetic embeddings")
			break
		}
		client := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.OpenAICompletionModel)
		provider = client
		deps.Chat = client
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Warn("no Gemini API key configured, using synthetic embeddings")
			break
		}
		embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		provider = embedder
	case "mock":
		// provider stays nil; the resilient wrapper supplies the mock.
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
	deps.Embedder = embedding.NewResilient(provider, cfg.EmbeddingDimension, cfg.EmbeddingMaxChars)

	// OpenAI still answers questions when Gemini handles embeddings.
	if deps.Chat == nil && cfg.OpenAIAPIKey != "" {
		deps.Chat = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.OpenAICompletionModel)
	}

	// Local store and remote tier.
	local, err := index.NewLocalStore(cfg.DataDir, deps.Embedder)
	if err != nil {
		return nil, fmt.Errorf("local store: %w", err)
	}

	wClient, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
	if err != nil {
		slog.Warn("failed to create weaviate client, remote tier disabled", "error", err)
		wClient = nil
	}
	backend := wstore.NewStore(wClient, cfg.WeaviateClass)
	remote := index.NewRemoteStore(backend, deps.Embedder, index.RemoteOptions{
		Timeout:       cfg.RemoteTimeout,
		RetryAttempts: cfg.InitRetryAttempts,
		RetryDelay:    cfg.InitRetryDelay,
	})

	deps.Chain = index.NewChain(remote, local)

	// Activity events.
	if cfg.EnableEvents {
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			slog.Warn("failed to create NSQ producer, events disabled", "error", err)
		} else {
			deps.Producer = producer
			createTopics(cfg.NSQDHost)
		}
	}

	return deps, nil
}

// createTopics pre-creates the activity topic so consumers querying lookupd
// do not 404 before the first publish. nsqd's HTTP port is TCP port + 1.
func createTopics(nsqdHost string) {
	host, _, err := net.SplitHostPort(nsqdHost)
	if err != nil {
		host = nsqdHost
	}
	url := fmt.Sprintf("http://%s:4151/topic/create?topic=%s", host, worker.TopicTabActivity)

	go func() {
		time.Sleep(2 * time.Second)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", worker.TopicTabActivity, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}()
}
