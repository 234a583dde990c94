package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/alpinesboltltd/docwell/internal/agent"
	"github.com/alpinesboltltd/docwell/internal/config"
	"github.com/alpinesboltltd/docwell/internal/contentstore"
	"github.com/alpinesboltltd/docwell/internal/detector"
	"github.com/alpinesboltltd/docwell/internal/embedder"
	"github.com/alpinesboltltd/docwell/internal/handler"
	"github.com/alpinesboltltd/docwell/internal/ingest"
	"github.com/alpinesboltltd/docwell/internal/logging"
	"github.com/alpinesboltltd/docwell/internal/middleware"
	"github.com/alpinesboltltd/docwell/internal/ocr"
	"github.com/alpinesboltltd/docwell/internal/render"
	"github.com/alpinesboltltd/docwell/internal/search"
	"github.com/alpinesboltltd/docwell/internal/storage"
	"github.com/alpinesboltltd/docwell/internal/vectorstore"
)

// Services bundles every collaborator wired at startup so cmd/server and
// cmd/run-index can share construction without duplicating it.
type Services struct {
	Content  *contentstore.Store
	Chat     *contentstore.ChatStore
	Storage  *storage.FileStorage
	Vectors  vectorstore.VectorDB
	Pipeline *ingest.Pipeline
	Search   *search.Engine
	Agent    *agent.Client
	Log      *logging.Logger

	genaiClient *genai.Client
	ocrClient   *ocr.Client
}

// BuildServices constructs every component named in the configuration
// and wires them into each other, without starting an HTTP server. Both
// the HTTP entrypoint and the CLI indexer use this.
func BuildServices(ctx context.Context, cfg *config.Config, renderer render.Renderer) (*Services, error) {
	log := logging.New()

	content, err := contentstore.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	chat, err := contentstore.OpenChatStore(ctx, cfg.ChatDBPath)
	if err != nil {
		return nil, err
	}

	fileStorage := storage.New(cfg.PDFsDir, cfg.PagesDir, cfg.CropsDir)
	if err := fileStorage.EnsureDirs(); err != nil {
		return nil, err
	}

	vectors := vectorstore.Open(cfg.VectorStoreBackend, cfg.ChromaPersistDir, cfg.EmbeddingDimension, log)

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GoogleAPIKey})
	if err != nil {
		return nil, err
	}

	ocrClient, err := ocr.New(ctx)
	if err != nil {
		return nil, err
	}

	detectorClient := detector.New(genaiClient, detector.Config{
		Model:                  cfg.DetectorModel,
		SystemInstruction:      cfg.BoundingBoxSystemInstructions,
		PDFSpatialInstructions: cfg.PDFSpatialInstructions,
	})
	embedderClient := embedder.New(genaiClient, cfg.EmbedModel, cfg.EmbeddingDimension)

	pipeline := ingest.New(
		ingest.Config{
			OCRBatchSize:     cfg.OCRBatchSize,
			OCRMaxQueueSize:  cfg.OCRMaxQueueSize,
			DetectionWorkers: cfg.DetectionWorkers,
			PDFRenderDPI:     cfg.PDFRenderDPI,
			ChunkSize:        ingest.DefaultChunkSize,
			ChunkOverlap:     ingest.DefaultChunkOverlap,
		},
		content, fileStorage, vectors, renderer, ocrClient, detectorClient, embedderClient, log,
	)

	searchEngine := search.New(content, vectors, embedderClient)
	agentClient := agent.New(genaiClient, searchEngine, chat, log, agent.Config{
		Model:          cfg.AgentModel,
		WebSearchModel: cfg.WebSearchModel,
	})

	return &Services{
		Content:     content,
		Chat:        chat,
		Storage:     fileStorage,
		Vectors:     vectors,
		Pipeline:    pipeline,
		Search:      searchEngine,
		Agent:       agentClient,
		Log:         log,
		genaiClient: genaiClient,
		ocrClient:   ocrClient,
	}, nil
}

// Close releases every resource BuildServices opened.
func (s *Services) Close() {
	if s.ocrClient != nil {
		s.ocrClient.Close()
	}
	if s.Vectors != nil {
		s.Vectors.Close()
	}
	if s.Chat != nil {
		s.Chat.Close()
	}
	if s.Content != nil {
		s.Content.Close()
	}
}

func router(svc *Services) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		backend := "memory"
		if _, ok := svc.Vectors.(*vectorstore.ChromemStore); ok {
			backend = "chromem"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "vector_store_backend": backend})
	})

	ingestHandler := handler.NewIngestHandler(svc.Pipeline, svc.Log)
	searchHandler := handler.NewSearchHandler(svc.Search)
	documentsHandler := handler.NewDocumentsHandler(svc.Content)
	renderHandler := handler.NewRenderHandler(svc.Content, svc.Storage)
	chatHandler := handler.NewChatHandler(svc.Agent, svc.Chat)

	r.POST("/ingest/pdf", ingestHandler.IngestPDF)

	r.GET("/search", searchHandler.Search)
	r.POST("/search", searchHandler.Search)

	r.GET("/documents", documentsHandler.ListDocuments)
	r.GET("/documents/:id", documentsHandler.GetDocument)
	r.GET("/documents/:id/pages/:n/regions", documentsHandler.ListPageRegions)

	r.GET("/render/page/:doc/:n", renderHandler.RenderPage)
	r.GET("/render/crop/:doc/:region", renderHandler.RenderCrop)

	r.POST("/chat", chatHandler.Chat)
	r.POST("/chat/:session_id", chatHandler.ChatInSession)
	r.GET("/chat/sessions", chatHandler.ListChatSessions)
	r.POST("/chat/sessions", chatHandler.CreateChatSession)
	r.GET("/chat/sessions/:id", chatHandler.GetChatSession)

	return r
}

// Run builds every service, serves the HTTP surface, and blocks until an
// interrupt or termination signal triggers a graceful shutdown.
func Run(cfg *config.Config, renderer render.Renderer) error {
	ctx := context.Background()
	svc, err := BuildServices(ctx, cfg, renderer)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router(svc),
	}

	go func() {
		svc.Log.Infof("server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			svc.Log.Errorf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	svc.Log.Infof("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
