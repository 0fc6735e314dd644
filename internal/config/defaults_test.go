package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerGRPCPort, cfg.Server.GRPCPort)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)

	assert.Equal(t, DefaultCorpusCacheTTL, cfg.Corpus.CacheTTL)
	assert.Equal(t, DefaultCorpusMaxConcurrency, cfg.Corpus.MaxConcurrency)
	assert.Equal(t, DefaultMaxChunkTokens, cfg.Corpus.MaxChunkTokens)
	assert.Equal(t, DefaultChunkOverlapTokens, cfg.Corpus.ChunkOverlapToks)
	assert.Equal(t, ".docignore", cfg.Corpus.DocIgnorePath)

	assert.Equal(t, DefaultPostgresHost, cfg.Postgres.Host)
	assert.Equal(t, DefaultPostgresPort, cfg.Postgres.Port)
	assert.Equal(t, DefaultPostgresDBName, cfg.Postgres.DBName)
	assert.Equal(t, DefaultPostgresMaxConns, cfg.Postgres.MaxConns)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)

	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, DefaultRedisInvalidateCh, cfg.Redis.InvalidateCh)

	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)

	assert.Equal(t, DefaultMilvusAddr, cfg.Milvus.Addr)
	assert.Equal(t, DefaultMilvusEmbeddingDim, cfg.Milvus.EmbeddingDim)
	assert.Equal(t, DefaultMilvusIndexType, cfg.Milvus.IndexType)
	assert.Equal(t, DefaultMilvusTopK, cfg.Milvus.DefaultTopK)

	assert.Equal(t, DefaultMinIOEndpoint, cfg.MinIO.Endpoint)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)

	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embedding.Provider)
	assert.Equal(t, DefaultEmbeddingDimension, cfg.Embedding.Dimension)
	assert.Equal(t, DefaultEmbeddingBatch, cfg.Embedding.BatchSize)

	assert.Equal(t, DefaultGenerationProvider, cfg.Generation.Provider)
	assert.Equal(t, DefaultGenerationMaxTokens, cfg.Generation.MaxTokens)

	assert.Equal(t, DefaultRerankerProvider, cfg.Reranker.Provider)
	assert.Equal(t, DefaultRerankerTopK, cfg.Reranker.TopK)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
	assert.Equal(t, []string{"stderr"}, cfg.Log.ErrorOutputPaths)
}

func TestApplyDefaults_NilConfigDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Postgres.Host = "custom-host"

	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "custom-host", cfg.Postgres.Host)
	assert.Equal(t, DefaultServerGRPCPort, cfg.Server.GRPCPort) // should still be default
}

func TestApplyDefaults_PreserveSliceValues(t *testing.T) {
	cfg := &Config{}
	brokers := []string{"kafka-1:9092", "kafka-2:9092"}
	cfg.Kafka.Brokers = brokers

	ApplyDefaults(cfg)

	assert.Equal(t, brokers, cfg.Kafka.Brokers)
}

func TestApplyDefaults_PreserveDurationValues(t *testing.T) {
	cfg := &Config{}
	timeout := 5 * time.Minute
	cfg.Corpus.CacheTTL = timeout

	ApplyDefaults(cfg)

	assert.Equal(t, timeout, cfg.Corpus.CacheTTL)
}

func TestApplyDefaults_EmbeddingDimensionMatchesMilvus(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, cfg.Milvus.EmbeddingDim, cfg.Embedding.Dimension)
}

func TestApplyDefaults_ThenValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Corpus.RootPath = "/docs"
	ApplyDefaults(cfg)

	assert.NoError(t, cfg.Validate())
}
