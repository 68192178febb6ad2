package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/config"
	"github.com/harmattan-labs/docent/internal/core"
	"github.com/harmattan-labs/docent/internal/core/database"
	"github.com/harmattan-labs/docent/internal/core/llm"
	"github.com/harmattan-labs/docent/internal/core/objectclient"
	"github.com/harmattan-labs/docent/internal/core/vectorstore"
	"github.com/harmattan-labs/docent/internal/ingest"
	"github.com/harmattan-labs/docent/internal/retrieval"
)

// App wires every collaborator once; everything downstream takes its
// dependencies explicitly.
type App struct {
	Config     *config.Config
	Log        *zap.Logger
	DBClient   *database.Client
	Storage    core.ObjectClient
	Store      core.VectorStore
	Embedder   core.EmbeddingProvider
	LLM        core.LLMProvider
	Summarizer core.LLMProvider
	Writer     *ingest.IndexWriter
	Assembler  *retrieval.Assembler
	Compressor *retrieval.HistoryCompressor
	Server     *Server

	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Config: cfg, Log: log}

	dbClient, err := database.NewClient(initCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DBClient = dbClient
	a.closers = append(a.closers, dbClient.Close)
	log.Info("database ready")

	storage, err := objectclient.NewS3Client(initCtx, cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	a.Storage = storage

	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	a.Embedder = embedder
	a.closers = append(a.closers, embedder.Close)

	gen, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init llm: %w", err)
	}
	a.LLM = gen
	a.closers = append(a.closers, gen.Close)

	summarizer, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.SummarizerModel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init summarizer: %w", err)
	}
	a.Summarizer = summarizer
	a.closers = append(a.closers, summarizer.Close)

	vision, err := llm.NewGeminiVision(initCtx, cfg.AIAPIKey, cfg.VisionModel)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init vision: %w", err)
	}
	a.closers = append(a.closers, vision.Close)

	a.Store = vectorstore.NewPgVectorStore(dbClient.DB())

	opts := ingestOptions(cfg)
	bridge := ingest.NewVisionBridge(vision, log)
	extractors := &ingest.ExtractorSet{
		PDF:   ingest.NewPDFExtractor(bridge, ingest.NewRasterizer(), storage, cfg.BucketName, opts, log),
		Docx:  ingest.NewDocxExtractor(bridge, log),
		Plain: ingest.NewPlainExtractor(),
	}
	a.Writer = ingest.NewIndexWriter(a.Store, embedder, extractors, opts, log)

	var reranker retrieval.Reranker
	if cfg.Retrieval.RerankEnabled {
		reranker = retrieval.NewLLMReranker(gen, log)
	}
	a.Assembler = retrieval.NewAssembler(a.Store, embedder, gen, reranker, retrieval.Options{
		TopK:           cfg.Retrieval.TopK,
		FinalN:         cfg.Retrieval.FinalN,
		RewriteEnabled: cfg.Retrieval.RewriteEnabled,
		RerankEnabled:  cfg.Retrieval.RerankEnabled,
	}, log)
	a.Compressor = retrieval.NewHistoryCompressor(summarizer,
		cfg.Retrieval.HistoryMaxLen, cfg.Retrieval.HistoryKeepTail, log)

	a.Server = NewServer(cfg, a, log)
	return a, nil
}

func ingestOptions(cfg *config.Config) ingest.Options {
	return ingest.Options{
		MaxTokens:     cfg.Ingest.MaxTokens,
		OverlapTokens: cfg.Ingest.OverlapTokens,
		BatchSize:     cfg.Ingest.BatchSize,
		BatchPause:    cfg.Ingest.BatchPause,
		FileWorkers:   cfg.Ingest.FileWorkers,
		TableMinChars: cfg.Ingest.TableMinChars,
		Filter: ingest.FilterConfig{
			MinChars:         cfg.Ingest.MinChunkChars,
			MinAlphaRatio:    cfg.Ingest.MinAlphaRatio,
			MinDistinctWords: cfg.Ingest.MinDistinctWords,
		},
		OCR: ingest.OCRPolicy{
			MinChars:      cfg.Ingest.OCRMinChars,
			MinWords:      cfg.Ingest.OCRMinWords,
			MinAlphaRatio: cfg.Ingest.OCRMinAlphaRatio,
			MinWordBoxes:  cfg.Ingest.OCRMinWordBoxes,
			Zoom:          cfg.Ingest.OCRZoom,
		},
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", zap.Error(err))
		}
	}
}
