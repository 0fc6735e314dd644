// Package config provides configuration loading, defaults, and validation for
// docintel.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort     = 8080
	DefaultServerGRPCPort = 9090
	DefaultServerMode     = "debug"

	DefaultCorpusCacheTTL       = 5 * time.Minute
	DefaultCorpusMaxConcurrency = 8
	DefaultCorpusWatchDebounce  = 500 * time.Millisecond
	DefaultMaxChunkTokens       = 512
	DefaultChunkOverlapTokens   = 64

	DefaultPostgresHost     = "localhost"
	DefaultPostgresPort     = 5432
	DefaultPostgresDBName   = "docintel"
	DefaultPostgresMaxConns = 25

	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisDB           = 0
	DefaultRedisInvalidateCh = "docintel:querycache:invalidate"

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "docintel.doc.updates"

	DefaultMilvusAddr         = "localhost:19530"
	DefaultMilvusEmbeddingDim = 256
	DefaultMilvusIndexType    = "HNSW"
	DefaultMilvusTopK         = 10

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "docintel-audit"

	DefaultEmbeddingProvider  = "hash"
	DefaultEmbeddingDimension = 256
	DefaultEmbeddingBatch     = 32

	DefaultGenerationProvider  = "extractive"
	DefaultGenerationMaxTokens = 512

	DefaultRerankerProvider = "heuristic"
	DefaultRerankerTopK     = 5

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.GRPCPort == 0 {
		cfg.Server.GRPCPort = DefaultServerGRPCPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Corpus ────────────────────────────────────────────────────────────────
	if cfg.Corpus.CacheTTL == 0 {
		cfg.Corpus.CacheTTL = DefaultCorpusCacheTTL
	}
	if cfg.Corpus.MaxConcurrency == 0 {
		cfg.Corpus.MaxConcurrency = DefaultCorpusMaxConcurrency
	}
	if cfg.Corpus.WatchDebounce == 0 {
		cfg.Corpus.WatchDebounce = DefaultCorpusWatchDebounce
	}
	if cfg.Corpus.MaxChunkTokens == 0 {
		cfg.Corpus.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if cfg.Corpus.ChunkOverlapToks == 0 {
		cfg.Corpus.ChunkOverlapToks = DefaultChunkOverlapTokens
	}
	if cfg.Corpus.DocIgnorePath == "" {
		cfg.Corpus.DocIgnorePath = ".docignore"
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultPostgresDBName
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.InvalidateCh == "" {
		cfg.Redis.InvalidateCh = DefaultRedisInvalidateCh
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultMilvusEmbeddingDim
	}
	if cfg.Milvus.IndexType == "" {
		cfg.Milvus.IndexType = DefaultMilvusIndexType
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = DefaultMilvusTopK
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Embedding ─────────────────────────────────────────────────────────────
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultEmbeddingProvider
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = DefaultEmbeddingDimension
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultEmbeddingBatch
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10 * time.Second
	}

	// ── Generation ────────────────────────────────────────────────────────────
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = DefaultGenerationProvider
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = DefaultGenerationMaxTokens
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 30 * time.Second
	}

	// ── Reranker ──────────────────────────────────────────────────────────────
	if cfg.Reranker.Provider == "" {
		cfg.Reranker.Provider = DefaultRerankerProvider
	}
	if cfg.Reranker.TopK == 0 {
		cfg.Reranker.TopK = DefaultRerankerTopK
	}
	if cfg.Reranker.Timeout == 0 {
		cfg.Reranker.Timeout = 10 * time.Second
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Log.ErrorOutputPaths) == 0 {
		cfg.Log.ErrorOutputPaths = []string{"stderr"}
	}
}
