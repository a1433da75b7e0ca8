package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nsqio/go-nsq"

	"tabrecall/backend/features/history"
	"tabrecall/backend/features/notes"
	"tabrecall/backend/features/organize"
	"tabrecall/backend/features/search"
	"tabrecall/backend/features/tabs"
	"tabrecall/backend/internal/config"
	"tabrecall/backend/internal/middleware"
	"tabrecall/backend/internal/retrieval"
	"tabrecall/backend/internal/worker"
)

// ChatClient is the completion surface shared by the features that generate
// text. Nil means no provider is configured and every consumer degrades.
type ChatClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int, jsonMode bool) (string, error)
}

type App struct {
	Handler         http.Handler
	TabService      *tabs.Service
	HistoryConsumer *nsq.Consumer

	port int
}

func New(cfg *config.Config, deps *Dependencies) (*App, error) {
	// Feature: Tabs
	var chat tabs.ChatClient
	if deps.Chat != nil {
		chat = deps.Chat
	}
	var pub tabs.EventPublisher
	if deps.Producer != nil {
		pub = deps.Producer
	}
	tabService := tabs.NewService(deps.Chain, chat, pub, tabs.Options{
		MaxContentLength: cfg.MaxContentLength,
		MinContentLength: cfg.MinContentLength,
		ChunkThreshold:   cfg.ChunkThreshold,
		MaxChunkSize:     cfg.MaxChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		SyncDelay:        cfg.SyncDelay,
	})
	tabHandler := tabs.NewHandler(tabService)

	// Feature: Search
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(deps.Chain, queryLogger)

	var answerChat retrieval.ChatClient
	if deps.Chat != nil {
		answerChat = deps.Chat
	}
	assembler := retrieval.NewAssembler(answerChat)
	searchHandler := search.NewHandler(retrievalService, assembler)

	// Feature: Notes
	notesRepo, err := notes.NewFileRepo(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("notes repo: %w", err)
	}
	notesHandler := notes.NewHandler(notes.NewService(notesRepo))

	// Feature: History
	historyRepo, err := history.NewFileRepo(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("history repo: %w", err)
	}
	historyService := history.NewService(historyRepo)
	historyHandler := history.NewHandler(historyService)

	// Feature: Organize
	var organizeChat organize.ChatClient
	if deps.Chat != nil {
		organizeChat = deps.Chat
	}
	organizeHandler := organize.NewHandler(organize.NewService(organizeChat))

	enableCORS := middleware.CORS(cfg.CORSOrigins)

	mux := http.NewServeMux()

	// Method-scoped patterns never match preflight requests, so OPTIONS gets
	// its own catch-all that only emits the CORS headers.
	mux.Handle("OPTIONS /", enableCORS(func(w http.ResponseWriter, r *http.Request) {}))

	mux.Handle("POST /api/index", middleware.CorrelationID(enableCORS(tabHandler.Index)))
	mux.Handle("POST /api/sync", middleware.CorrelationID(enableCORS(tabHandler.Sync)))
	mux.Handle("DELETE /api/remove/{id}", middleware.CorrelationID(enableCORS(tabHandler.Remove)))

	mux.Handle("POST /api/search", middleware.CorrelationID(enableCORS(searchHandler.Search)))
	mux.Handle("GET /api/stats", middleware.CorrelationID(enableCORS(searchHandler.Stats)))

	mux.Handle("POST /api/notes/{tabId}", middleware.CorrelationID(enableCORS(notesHandler.Save)))
	mux.Handle("GET /api/notes/{tabId}", middleware.CorrelationID(enableCORS(notesHandler.List)))
	mux.Handle("DELETE /api/notes/{tabId}/{noteId}", middleware.CorrelationID(enableCORS(notesHandler.Delete)))

	mux.Handle("POST /api/history", middleware.CorrelationID(enableCORS(historyHandler.Record)))
	mux.Handle("GET /api/history", middleware.CorrelationID(enableCORS(historyHandler.List)))
	mux.Handle("DELETE /api/history/{id}", middleware.CorrelationID(enableCORS(historyHandler.Delete)))

	mux.Handle("POST /api/categorize", middleware.CorrelationID(enableCORS(organizeHandler.Categorize)))
	mux.Handle("POST /api/prioritize", middleware.CorrelationID(enableCORS(organizeHandler.Prioritize)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /{$}", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name": "tabrecall backend",
			"endpoints": []string{
				"POST /api/index",
				"POST /api/sync",
				"DELETE /api/remove/{id}",
				"POST /api/search",
				"GET /api/stats",
				"POST /api/notes/{tabId}",
				"GET /api/notes/{tabId}",
				"DELETE /api/notes/{tabId}/{noteId}",
				"POST /api/history",
				"GET /api/history",
				"DELETE /api/history/{id}",
				"POST /api/categorize",
				"POST /api/prioritize",
				"GET /health",
			},
		})
	}))

	// Activity consumer feeds the history log from indexing events.
	var consumer *nsq.Consumer
	if cfg.EnableEvents {
		consumer, err = newHistoryConsumer(cfg, historyService)
		if err != nil {
			slog.Warn("failed to start history consumer", "error", err)
			consumer = nil
		}
	}

	return &App{
		Handler:         mux,
		TabService:      tabService,
		HistoryConsumer: consumer,
		port:            cfg.ServerPort,
	}, nil
}

func newHistoryConsumer(cfg *config.Config, recorder worker.Recorder) (*nsq.Consumer, error) {
	consumer, err := nsq.NewConsumer(worker.TopicTabActivity, "backend", nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	hc := worker.NewHistoryConsumer(recorder)
	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		return hc.HandleMessage(m)
	}))
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return nil, err
	}
	slog.Info("history consumer connected", "topic", worker.TopicTabActivity)
	return consumer, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if a.HistoryConsumer != nil {
			a.HistoryConsumer.Stop()
		}
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
