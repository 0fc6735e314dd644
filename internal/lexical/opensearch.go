package lexical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/pkg/errors"
)

// OpenSearchConfig configures the OpenSearch-backed lexical index, used once
// a corpus grows too large to rescore every chunk in memory on each query.
type OpenSearchConfig struct {
	Addresses  []string
	Username   string
	Password   string
	IndexName  string
	BulkBatch  int
}

// OpenSearchIndex mirrors HeuristicScorer's scoring contract but delegates
// storage and term matching to an OpenSearch index, refreshed by bulk
// upserts through IndexChunks; the Scorer adapter re-upserts its candidate
// chunks on every Score call.
type OpenSearchIndex struct {
	client    *opensearchapi.Client
	indexName string
	bulkBatch int
	log       logging.Logger
}

// NewOpenSearchIndex dials OpenSearch and ensures the target index exists
// with a mapping tuned for the fixed scoring weights: heading and content
// are indexed as separate fields so phrase and term queries against each
// can be boosted independently.
func NewOpenSearchIndex(cfg OpenSearchConfig, log logging.Logger) (*OpenSearchIndex, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.ConfigError("opensearch: at least one address is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.BulkBatch <= 0 {
		cfg.BulkBatch = 500
	}
	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "docintel-chunks"
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
		},
	})
	if err != nil {
		return nil, errors.ProviderError("opensearch: failed to construct client").WithCause(err)
	}

	idx := &OpenSearchIndex{client: client, indexName: indexName, bulkBatch: cfg.BulkBatch, log: log}
	if err := idx.ensureIndex(context.Background()); err != nil {
		return nil, err
	}
	return idx, nil
}

type chunkDoc struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Content string `json:"content"`
	File    string `json:"file"`
	DocType string `json:"doc_type"`
}

func (o *OpenSearchIndex) ensureIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"heading": {"type": "text"},
				"content": {"type": "text"},
				"file":    {"type": "keyword"},
				"doc_type": {"type": "keyword"}
			}
		}
	}`
	_, err := o.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: o.indexName,
		Body:  strings.NewReader(mapping),
	})
	if err != nil && !strings.Contains(err.Error(), "resource_already_exists_exception") {
		return errors.ProviderError("opensearch: failed to create index").WithCause(err)
	}
	return nil
}

// IndexChunks upserts chunks into OpenSearch in batches of bulkBatch.
func (o *OpenSearchIndex) IndexChunks(ctx context.Context, chunks []docmodel.Chunk) error {
	for start := 0; start < len(chunks); start += o.bulkBatch {
		end := start + o.bulkBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := o.bulkUpsert(ctx, chunks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (o *OpenSearchIndex) bulkUpsert(ctx context.Context, chunks []docmodel.Chunk) error {
	var buf bytes.Buffer
	for _, c := range chunks {
		meta := map[string]interface{}{"index": map[string]string{"_index": o.indexName, "_id": c.ID}}
		metaBytes, _ := json.Marshal(meta)
		buf.Write(metaBytes)
		buf.WriteByte('\n')

		doc := chunkDoc{ID: c.ID, Heading: c.Heading, Content: c.Content, File: c.File, DocType: c.DocType}
		docBytes, _ := json.Marshal(doc)
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	resp, err := o.client.Bulk(ctx, opensearchapi.BulkReq{Body: &buf})
	if err != nil {
		return errors.ProviderError("opensearch: bulk upsert failed").WithCause(err)
	}
	if resp.Errors {
		return errors.ProviderError(fmt.Sprintf("opensearch: %d bulk items failed", len(resp.Items)))
	}
	return nil
}

// Search runs a multi-match query against heading and content with the same
// relative boosts as HeuristicScorer's flat weight table, and returns hits
// whose Chunk carries the ID, heading, content, file and doc type stored in
// the index, scored by OpenSearch's relevance score.
func (o *OpenSearchIndex) Search(ctx context.Context, query string, topK int) ([]docmodel.SearchHit, error) {
	if topK <= 0 {
		topK = 10
	}
	body := fmt.Sprintf(`{
		"size": %d,
		"query": {
			"multi_match": {
				"query": %q,
				"fields": ["heading^%d", "content^%d"]
			}
		}
	}`, topK, query, int(ScoreTermInHeading), int(ScoreTermInContent))

	resp, err := o.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{o.indexName},
		Body:    strings.NewReader(body),
	})
	if err != nil {
		return nil, errors.ProviderError("opensearch: search failed").WithCause(err)
	}

	hits := make([]docmodel.SearchHit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var doc chunkDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		hits = append(hits, docmodel.SearchHit{
			Chunk: &docmodel.Chunk{ID: doc.ID, Heading: doc.Heading, Content: doc.Content, File: doc.File, DocType: doc.DocType},
			Score: h.Score,
		})
	}
	return hits, nil
}

// DeleteByFile removes every indexed chunk belonging to file, used when a
// document is removed from the corpus.
func (o *OpenSearchIndex) DeleteByFile(ctx context.Context, file string) error {
	body := fmt.Sprintf(`{"query": {"term": {"file": %q}}}`, file)
	_, err := o.client.Document.DeleteByQuery(ctx, opensearchapi.DocumentDeleteByQueryReq{
		Indices: []string{o.indexName},
		Body:    strings.NewReader(body),
	})
	if err != nil {
		return errors.ProviderError("opensearch: delete by file failed").WithCause(err)
	}
	return nil
}
