package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, populated from the environment.
// A .env file in the working directory is loaded first if present.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	AwsAccessKey string `env:"AWS_ACCESS_KEY"`
	AwsSecretKey string `env:"AWS_SECRET_KEY"`
	AwsRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	BucketName   string `env:"BUCKET_NAME" envDefault:"docent-docs"`

	AIAPIKey        string `env:"GEMINI_API_KEY"`
	EmbedModel      string `env:"EMBED_MODEL" envDefault:"gemini-embedding-001"`
	GenModel        string `env:"GEN_MODEL" envDefault:"gemini-1.5-flash"`
	VisionModel     string `env:"VISION_MODEL" envDefault:"gemini-1.5-flash"`
	SummarizerModel string `env:"SUMMARIZER_MODEL" envDefault:"gemini-1.5-flash"`

	IndexName string `env:"INDEX_NAME" envDefault:"institution-docs"`
	DataDir   string `env:"DATA_DIR" envDefault:"./data"`

	Ingest    Ingest    `envPrefix:"INGEST_"`
	Retrieval Retrieval `envPrefix:"RETRIEVAL_"`
}

// Ingest carries the hand-tuned pipeline knobs. The threshold values are
// deliberate constants from operating the system, not derived quantities;
// keep them overridable rather than assuming they are optimal.
type Ingest struct {
	MaxTokens     int           `env:"MAX_TOKENS" envDefault:"1000"`
	OverlapTokens int           `env:"OVERLAP_TOKENS" envDefault:"150"`
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"100"`
	BatchPause    time.Duration `env:"BATCH_PAUSE" envDefault:"2s"`
	FileWorkers   int           `env:"FILE_WORKERS" envDefault:"1"`

	// Low-value chunk filter.
	MinChunkChars    int     `env:"MIN_CHUNK_CHARS" envDefault:"80"`
	MinAlphaRatio    float64 `env:"MIN_ALPHA_RATIO" envDefault:"0.35"`
	MinDistinctWords int     `env:"MIN_DISTINCT_WORDS" envDefault:"6"`

	// OCR triggers for PDF pages.
	OCRMinChars      int     `env:"OCR_MIN_CHARS" envDefault:"180"`
	OCRMinWords      int     `env:"OCR_MIN_WORDS" envDefault:"40"`
	OCRMinAlphaRatio float64 `env:"OCR_MIN_ALPHA_RATIO" envDefault:"0.12"`
	OCRMinWordBoxes  int     `env:"OCR_MIN_WORD_BOXES" envDefault:"25"`
	OCRZoom          float64 `env:"OCR_ZOOM" envDefault:"3"`

	// Minimum native text before table detection is worth attempting.
	TableMinChars int `env:"TABLE_MIN_CHARS" envDefault:"200"`
}

// Retrieval tunes the query-time assembler.
type Retrieval struct {
	TopK            int  `env:"TOP_K" envDefault:"20"`
	FinalN          int  `env:"FINAL_N" envDefault:"10"`
	RewriteEnabled  bool `env:"REWRITE_ENABLED" envDefault:"false"`
	RerankEnabled   bool `env:"RERANK_ENABLED" envDefault:"false"`
	HistoryMaxLen   int  `env:"HISTORY_MAX_LEN" envDefault:"10"`
	HistoryKeepTail int  `env:"HISTORY_KEEP_TAIL" envDefault:"6"`
}

// Load reads .env (if any) and parses the environment into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	return cfg, nil
}
