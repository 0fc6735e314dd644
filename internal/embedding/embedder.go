// Package embedding converts Chunk text into fixed-dimensionality vectors.
// A deterministic hashing embedder serves as an always-available fallback;
// an HTTP-backed provider implements the same Embedder contract for real
// embedding models.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/turtacn/docintel/pkg/errors"
)

// DefaultBatchSize bounds how many texts a single provider call embeds at
// once.
const DefaultBatchSize = 32

// Embedder converts text into unit-norm vectors of a fixed dimensionality.
type Embedder interface {
	// Embed returns one unit-norm vector per input text, in order. The
	// returned vectors all have the same length, equal to Dimension().
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the fixed vector length this Embedder produces.
	Dimension() int
}

// HashEmbedder is a deterministic, dependency-free Embedder: every text
// maps to the same vector across process restarts, useful for local
// development and tests where no real embedding provider is configured.
// It is not semantically meaningful — only stable and unit-norm.
type HashEmbedder struct {
	dimension int
	batchSize int

	mu    sync.Mutex
	cache map[string][]float32
}

// NewHashEmbedder constructs a HashEmbedder producing vectors of the given
// dimension. dimension <= 0 defaults to 256.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{
		dimension: dimension,
		batchSize: DefaultBatchSize,
		cache:     make(map[string][]float32),
	}
}

// Dimension implements Embedder.
func (e *HashEmbedder) Dimension() int { return e.dimension }

// Embed implements Embedder by hashing each text into a seeded
// pseudo-random vector, then normalizing it to unit length. Identical text
// always produces an identical vector; results are cached per process.
func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	e.mu.Lock()
	if v, ok := e.cache[text]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	vec := make([]float32, e.dimension)
	seed := sha256.Sum256([]byte(text))

	state := binary.BigEndian.Uint64(seed[:8])
	for i := range vec {
		state = splitmix64(state)
		// Map the 64-bit state to a float in [-1, 1).
		vec[i] = float32(int64(state>>11))/float32(1<<52) - 1
	}
	normalize(vec)

	e.mu.Lock()
	e.cache[text] = vec
	e.mu.Unlock()
	return vec
}

// splitmix64 is a fast, well-distributed PRNG step used only to derive a
// stable pseudo-random vector from a seed; it carries no cryptographic
// properties and needs none here.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// BatchSize implements the batching contract shared with provider-backed
// embedders.
func (e *HashEmbedder) BatchSize() int { return e.batchSize }

// ProviderConfig configures an HTTP-backed embedding provider.
type ProviderConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

// ProviderEmbedder calls an external HTTP embedding endpoint in batches,
// validating configuration up front so a missing credential fails fast at
// construction rather than on first use.
type ProviderEmbedder struct {
	cfg    ProviderConfig
	caller func(ctx context.Context, cfg ProviderConfig, texts []string) ([][]float32, error)
}

// NewProviderEmbedder validates cfg and constructs a ProviderEmbedder. caller
// performs the actual HTTP round trip; production wiring supplies the real
// transport, tests supply a stub.
func NewProviderEmbedder(cfg ProviderConfig, caller func(ctx context.Context, cfg ProviderConfig, texts []string) ([][]float32, error)) (*ProviderEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.ConfigError("embedding: provider base_url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.ConfigError("embedding: provider api_key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.ConfigError("embedding: provider dimension must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ProviderEmbedder{cfg: cfg, caller: caller}, nil
}

// Dimension implements Embedder.
func (p *ProviderEmbedder) Dimension() int { return p.cfg.Dimension }

// Embed implements Embedder, batching texts in groups of cfg.BatchSize and
// normalizing every returned vector to unit length regardless of what the
// provider returns.
func (p *ProviderEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := p.caller(ctx, p.cfg, texts[start:end])
		if err != nil {
			return nil, errors.ProviderError("embedding: provider call failed").WithCause(err)
		}
		if len(vecs) != end-start {
			return nil, errors.ProviderError("embedding: provider returned a mismatched vector count")
		}
		for _, v := range vecs {
			if len(v) != p.cfg.Dimension {
				return nil, errors.ProviderError("embedding: provider returned a vector of the wrong dimension")
			}
			normalize(v)
			out = append(out, v)
		}
	}
	return out, nil
}
