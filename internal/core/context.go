// Package core wires every component (index, fact index, query cache,
// lexical scorer, RAG pipeline, update agent, file watcher, metrics) into a
// single, explicitly-constructed CoreContext and exposes the nine
// transport-agnostic operations every interface (HTTP, gRPC, CLI) drives.
//
// There are no package-level singletons here: every operation is a method
// on *CoreContext, and tests build their own CoreContext per scenario
// instead of reaching for shared global state.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/docintel/internal/chunker"
	"github.com/turtacn/docintel/internal/config"
	"github.com/turtacn/docintel/internal/docupdate"
	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/embedding"
	"github.com/turtacn/docintel/internal/facts"
	"github.com/turtacn/docintel/internal/generation"
	"github.com/turtacn/docintel/internal/index"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/internal/lexical"
	"github.com/turtacn/docintel/internal/metrics"
	"github.com/turtacn/docintel/internal/querycache"
	"github.com/turtacn/docintel/internal/rag"
	"github.com/turtacn/docintel/internal/rerank"
	"github.com/turtacn/docintel/internal/vectorstore"
	"github.com/turtacn/docintel/internal/watch"
	"github.com/turtacn/docintel/pkg/errors"
)

// HealthChecker is implemented by any wired dependency that can report its
// own reachability. Embedding it as an interface lets Healthz probe every
// optional collaborator uniformly without a type switch per dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CoreContext holds every component the nine core operations depend on. It
// is built once at process startup by New and then threaded explicitly into
// every transport; nothing here is a package-level var.
type CoreContext struct {
	cfg    config.Config
	logger logging.Logger

	Index     *index.Index
	Facts     *facts.Registry
	Cache     *querycache.Cache
	Lexical   lexical.Scorer
	ChunkCfg  chunker.Config
	Pipeline  *rag.Pipeline
	Update    *docupdate.Agent
	Watcher   *watch.Watcher
	Metrics   *metrics.Metrics

	startedAt   time.Time
	dbHealth    HealthChecker // optional; nil when no audit store is configured
	broadcaster *querycache.Broadcaster // optional; nil when no Redis address is configured
	closers     []func()
}

// publishInvalidation notifies sibling processes that root's cache entries
// are stale, when a Redis broadcaster is configured. Failures are logged,
// not returned: a missed cross-process invalidation is recovered by the
// entry's own TTL, so it never fails the caller's write operation.
func (cc *CoreContext) publishInvalidation(ctx context.Context, root string) {
	if cc.broadcaster == nil {
		return
	}
	if err := cc.broadcaster.Publish(ctx, root); err != nil {
		cc.logger.Warn("failed to publish cache invalidation notice", logging.Err(err))
	}
}

// New constructs every component described by cfg and wires them into a
// CoreContext. Construction is fail-fast: any collaborator that cannot be
// built (a bad provider config, an unreachable broker) aborts the whole
// call so a misconfigured process never starts serving traffic.
func New(ctx context.Context, cfg config.Config, logger logging.Logger) (*CoreContext, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	idx := index.New(logger)
	cc := &CoreContext{cfg: cfg, logger: logger, Index: idx, startedAt: time.Now()}
	cc.closers = append(cc.closers, idx.Close)

	cc.Facts = facts.NewRegistry(idx)
	cc.Cache = querycache.New(querycache.DefaultMaxEntries, cfg.Corpus.CacheTTL)

	lex, err := buildLexicalScorer(cfg.OpenSearch, logger)
	if err != nil {
		return nil, err
	}
	cc.Lexical = lex

	if cfg.Redis.Addr != "" {
		bc, closeFn, err := buildBroadcaster(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		cc.closers = append(cc.closers, closeFn)
		invalidateCtx, cancelInvalidate := context.WithCancel(context.Background())
		cc.closers = append(cc.closers, cancelInvalidate)
		go func() {
			if err := bc.Subscribe(invalidateCtx, func(root string) { cc.Cache.InvalidateAll() }); err != nil {
				logger.Warn("query cache invalidation subscription ended", logging.Err(err))
			}
		}()
		cc.broadcaster = bc
	}

	chunkCfg := chunker.Config{MaxTokens: cfg.Corpus.MaxChunkTokens, OverlapTokens: cfg.Corpus.ChunkOverlapToks}
	if chunkCfg.MaxTokens <= 0 {
		chunkCfg.MaxTokens = chunker.DefaultMaxTokens
	}
	cc.ChunkCfg = chunkCfg

	emb, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := buildVectorStore(ctx, cfg.Milvus, logger)
	if err != nil {
		return nil, err
	}

	rr, err := buildReranker(cfg.Reranker)
	if err != nil {
		return nil, err
	}

	gen, err := buildGenerator(cfg.Generation)
	if err != nil {
		return nil, err
	}

	cc.Pipeline = rag.New(emb, store, rr, gen, cfg.Milvus.DefaultTopK)

	var pub docupdate.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := docupdate.NewKafkaPublisher(cfg.Kafka, logger)
		if err != nil {
			return nil, err
		}
		pub = kp
		cc.closers = append(cc.closers, func() { _ = kp.Close() })
	}

	var aud docupdate.Auditor
	if cfg.Postgres.Host != "" {
		pa, err := docupdate.NewPostgresAuditor(ctx, cfg.Postgres, cfg.Postgres.MigrationPath, logger)
		if err != nil {
			return nil, err
		}
		aud = pa
		cc.dbHealth = pa
		cc.closers = append(cc.closers, pa.Close)
	}

	var arc docupdate.Archiver
	if cfg.MinIO.Endpoint != "" {
		ma, err := docupdate.NewMinIOArchiver(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		arc = ma
	}

	cc.Update = docupdate.NewAgent(idx, cc.Facts, pub, aud, arc, logger)

	m, err := metrics.New(logger)
	if err != nil {
		return nil, err
	}
	cc.Metrics = m

	if cfg.Corpus.WatchEnabled && cfg.Corpus.RootPath != "" {
		debounce := cfg.Corpus.WatchDebounce
		if debounce <= 0 {
			debounce = watch.DefaultDebounce
		}
		w, err := watch.New(cfg.Corpus.RootPath, idx, watch.WithDebounce(debounce), watch.WithLogger(logger), watch.WithOnReindex(func(ctx context.Context, _ watch.Event) {
			cc.Facts.Invalidate(cfg.Corpus.RootPath)
			cc.Cache.InvalidateAll()
			cc.publishInvalidation(ctx, cfg.Corpus.RootPath)
		}))
		if err != nil {
			return nil, err
		}
		cc.Watcher = w
	}

	return cc, nil
}

func buildEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "http":
		return embedding.NewProviderEmbedder(embedding.ProviderConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
		}, embeddingHTTPCaller)
	default:
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	}
}

func buildLexicalScorer(cfg config.OpenSearchConfig, logger logging.Logger) (lexical.Scorer, error) {
	if !cfg.Enabled || len(cfg.Addresses) == 0 {
		return lexical.NewHeuristicScorer(), nil
	}
	idx, err := lexical.NewOpenSearchIndex(lexical.OpenSearchConfig{
		Addresses: cfg.Addresses,
		Username:  cfg.User,
		Password:  cfg.Password,
		IndexName: cfg.IndexPrefix + "chunks",
		BulkBatch: cfg.BulkBatchSize,
	}, logger)
	if err != nil {
		return nil, err
	}
	return lexical.NewOpenSearchScorer(idx), nil
}

func buildBroadcaster(cfg config.RedisConfig, logger logging.Logger) (*querycache.Broadcaster, func(), error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return querycache.NewBroadcaster(rdb, logger), func() { _ = rdb.Close() }, nil
}

func buildVectorStore(ctx context.Context, cfg config.MilvusConfig, logger logging.Logger) (vectorstore.Store, error) {
	if cfg.Addr == "" {
		return vectorstore.NewMemoryStore(), nil
	}
	return vectorstore.NewMilvusStore(ctx, cfg, logger)
}

func buildReranker(cfg config.RerankerConfig) (rerank.Reranker, error) {
	if !cfg.Enabled || cfg.Provider != "http" {
		return rerank.NewHeuristicReranker(), nil
	}
	return rerank.NewProviderReranker(rerank.ProviderConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		TopK:    cfg.TopK,
	}, rerankHTTPCaller)
}

func buildGenerator(cfg config.GenerationConfig) (rag.Generator, error) {
	if cfg.Provider != "http" {
		return nil, nil
	}
	return generation.NewHTTPGenerator(generation.HTTPConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})
}

// Close releases every collaborator CoreContext constructed, in reverse
// construction order.
func (cc *CoreContext) Close() {
	for i := len(cc.closers) - 1; i >= 0; i-- {
		cc.closers[i]()
	}
}

// Search performs lexical retrieval against the live section index: the
// current corpus state is chunked on every call rather than cached, since
// the lexical scorer operates over chunks, not raw sections.
func (cc *CoreContext) Search(ctx context.Context, root, query string, filters lexical.Filters, topK int) ([]docmodel.SearchHit, error) {
	sections, err := cc.Index.Get(ctx, root)
	if err != nil {
		return nil, err
	}

	var chunks []docmodel.Chunk
	for _, s := range sections {
		chunks = append(chunks, chunker.Chunk(s, &cc.ChunkCfg)...)
	}

	if topK <= 0 {
		topK = rag.DefaultTopK
	}

	key := querycache.Key(root, query, map[string]string{
		"op":       "search",
		"k":        fmt.Sprint(topK),
		"release":  filters.Release,
		"service":  filters.Service,
		"docTypes": strings.Join(filters.DocTypes, ","),
	})
	value, err := cc.Cache.GetOrFetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return cc.Lexical.Score(ctx, query, chunks, filters, topK)
	})
	if err != nil {
		return nil, err
	}
	return value.([]docmodel.SearchHit), nil
}

// Answer runs the grounded retrieve-rerank-synthesize-assess pipeline.
func (cc *CoreContext) Answer(ctx context.Context, query string, filters rag.Filters, topK, maxTokens int) (docmodel.RAGResponse, error) {
	return cc.Pipeline.Run(ctx, rag.Query{Text: query, Filters: filters, K: topK, MaxTokens: maxTokens})
}

// SuggestUpdate drafts a documentation change for a maintenance intent.
func (cc *CoreContext) SuggestUpdate(ctx context.Context, root string, in docupdate.Intent) (docmodel.UpdateSuggestion, error) {
	return cc.Update.SuggestUpdate(ctx, root, in)
}

// ApplyUpdate commits a previously drafted suggestion to disk.
func (cc *CoreContext) ApplyUpdate(ctx context.Context, root string, suggestion docmodel.UpdateSuggestion, force bool) (docmodel.UpdateResult, error) {
	result, err := cc.Update.ApplyUpdate(ctx, root, suggestion, force)
	if err == nil {
		cc.Cache.InvalidateAll()
		cc.publishInvalidation(ctx, root)
	}
	return result, err
}

// ReleaseSummary is one release's view of a feature for CompareReleases: the
// sections whose heading or content mentions the feature, grouped by doc
// type so a caller can see where coverage diverged between releases.
type ReleaseSummary struct {
	Release  string   `json:"release"`
	DocTypes []string `json:"doc_types"`
	Headings []string `json:"headings"`
	Excerpt  string   `json:"excerpt"`
}

// CompareReleases has no dedicated module in the request surface beyond its
// operation-table entry; this implementation is grounded directly in the
// Section data model (File/Release/DocType/Heading/Content) the parser
// already produces: for each requested release it collects every section
// whose heading or content mentions feature, case-insensitively, and
// reports the doc types and headings touched plus a short excerpt. A caller
// diffs the two ReleaseSummary values to see what changed.
func (cc *CoreContext) CompareReleases(ctx context.Context, root, feature string, releases []string) ([]ReleaseSummary, error) {
	if strings.TrimSpace(feature) == "" {
		return nil, errors.InvalidParam("core: compareReleases feature must not be empty")
	}
	sections, err := cc.Index.Get(ctx, root)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(releases))
	for _, r := range releases {
		wanted[r] = true
	}
	needle := strings.ToLower(feature)

	byRelease := make(map[string]*ReleaseSummary)
	order := make([]string, 0, len(releases))
	for _, s := range sections {
		if len(wanted) > 0 && !wanted[s.Release] {
			continue
		}
		if !strings.Contains(strings.ToLower(s.Heading), needle) && !strings.Contains(strings.ToLower(s.Content), needle) {
			continue
		}
		sum, ok := byRelease[s.Release]
		if !ok {
			sum = &ReleaseSummary{Release: s.Release}
			byRelease[s.Release] = sum
			order = append(order, s.Release)
		}
		sum.DocTypes = appendUnique(sum.DocTypes, s.DocType)
		sum.Headings = append(sum.Headings, s.Heading)
		if sum.Excerpt == "" {
			sum.Excerpt = excerpt(s.Content, 200)
		}
	}

	out := make([]ReleaseSummary, 0, len(order))
	for _, r := range order {
		out = append(out, *byRelease[r])
	}
	return out, nil
}

// ServiceDependency is one directed edge extracted from a SERVICE_CONTRACTS
// section: the owning file/release names a dependency on another service.
type ServiceDependency struct {
	Service   string `json:"service"`
	DependsOn string `json:"depends_on"`
	File      string `json:"file"`
	Release   string `json:"release"`
	Heading   string `json:"heading"`
}

// serviceContractsDocType is the suffix docupdate uses for service-contract
// documents and the doc type ServiceDependencies scans.
const serviceContractsDocType = "SERVICE_CONTRACTS"

// dependsOnMarker is the convention a SERVICE_CONTRACTS section line uses to
// name an outbound dependency: "depends on: <service>".
const dependsOnMarker = "depends on:"

// ServiceDependencies has no dedicated module either; it mines the same
// SERVICE_CONTRACTS-doc-type sections docupdate.inferSuffix routes
// "service"-keyword intents into, looking for the "depends on:"
// convention on each line. A document not following that convention simply
// contributes no edges, which keeps this additive rather than a hard
// requirement on document authors.
func (cc *CoreContext) ServiceDependencies(ctx context.Context, root, service string) ([]ServiceDependency, error) {
	sections, err := cc.Index.Get(ctx, root)
	if err != nil {
		return nil, err
	}

	var deps []ServiceDependency
	for _, s := range sections {
		if s.DocType != serviceContractsDocType {
			continue
		}
		if service != "" && !strings.EqualFold(s.Heading, service) && !strings.Contains(strings.ToLower(s.Heading), strings.ToLower(service)) {
			continue
		}
		for _, line := range strings.Split(s.Content, "\n") {
			lower := strings.ToLower(line)
			idx := strings.Index(lower, dependsOnMarker)
			if idx < 0 {
				continue
			}
			target := strings.TrimSpace(line[idx+len(dependsOnMarker):])
			target = strings.Trim(target, "`*_ ")
			if target == "" {
				continue
			}
			deps = append(deps, ServiceDependency{
				Service:   s.Heading,
				DependsOn: target,
				File:      s.File,
				Release:   s.Release,
				Heading:   s.Heading,
			})
		}
	}
	return deps, nil
}

// Refresh forces a rescan of root, invalidating the section index, fact
// index, and query cache together so the next request to any of them sees
// the current on-disk state.
func (cc *CoreContext) Refresh(ctx context.Context, root string) error {
	cc.Index.Invalidate(root)
	cc.Facts.Invalidate(root)
	cc.Cache.InvalidateAll()
	cc.publishInvalidation(ctx, root)
	_, err := cc.Index.Get(ctx, root)
	return err
}

// HealthStatus is the healthz operation's response payload.
type HealthStatus struct {
	Status string            `json:"status"` // "ok" | "degraded"
	Tools  map[string]string `json:"tools"`
	Uptime float64           `json:"uptime"` // seconds since CoreContext was constructed
}

// Healthz probes every optional external collaborator CoreContext wired in
// and reports "degraded" if any of them is unreachable, without failing the
// call itself — a transport layer decides what HTTP/gRPC status a degraded
// result maps to.
func (cc *CoreContext) Healthz(ctx context.Context) HealthStatus {
	tools := map[string]string{"index": "ok"}
	status := "ok"

	if cc.dbHealth != nil {
		if err := cc.dbHealth.HealthCheck(ctx); err != nil {
			tools["postgres"] = err.Error()
			status = "degraded"
		} else {
			tools["postgres"] = "ok"
		}
	}

	if n, err := cc.Pipeline.Vectors.Count(ctx); err != nil {
		tools["vectorstore"] = err.Error()
		status = "degraded"
	} else {
		tools["vectorstore"] = fmt.Sprintf("ok (%d vectors)", n)
	}

	return HealthStatus{Status: status, Tools: tools, Uptime: time.Since(cc.startedAt).Seconds()}
}

// MetricsSnapshot returns a snapshot of every recorded operation's request,
// error, and latency counts.
func (cc *CoreContext) MetricsSnapshot() metrics.Snapshot {
	return cc.Metrics.Snapshot()
}

// Timed wraps a single operation invocation with the standard
// request/error/latency recording every transport applies uniformly.
func (cc *CoreContext) Timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	cc.Metrics.RecordOperation(operation, err, time.Since(start))
	return err
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func excerpt(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "…"
}
