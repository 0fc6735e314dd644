package vectorstore

import (
	"context"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/pkg/errors"
)

const (
	fieldChunkID    = "chunk_id"
	fieldVector     = "vector"
	fieldContent    = "content"
	fieldFile       = "file"
	fieldRelease    = "release"
	fieldDocType    = "doc_type"
	fieldService    = "service"
	fieldHeading    = "heading"
	fieldLineStart  = "line_start"
	fieldLineEnd    = "line_end"
	fieldChunkIndex = "chunk_index"
	fieldTokens     = "tokens"
)

// MilvusConfig configures the Milvus-backed Store.
type MilvusConfig struct {
	Addr               string
	DBName             string
	CollectionName     string
	Dimension          int
	HNSWM              int
	HNSWEfConstruction int
	ConnectTimeout     time.Duration
}

// MilvusStore implements Store against a Milvus collection with an HNSW
// index over its vector field, following the connect/ensure-schema/
// create-index/load sequence used by this codebase's other Milvus wrapper.
type MilvusStore struct {
	cli        client.Client
	collection string
	dimension  int
	log        logging.Logger
}

// NewMilvusStore connects to Milvus, creates the collection and its HNSW
// index if absent, and loads the collection into memory for search.
func NewMilvusStore(ctx context.Context, cfg MilvusConfig, log logging.Logger) (*MilvusStore, error) {
	if cfg.Addr == "" {
		return nil, errors.ConfigError("vectorstore: milvus addr is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.ConfigError("vectorstore: milvus embedding dimension must be positive")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = "docintel_chunks"
	}
	if cfg.HNSWM <= 0 {
		cfg.HNSWM = 16
	}
	if cfg.HNSWEfConstruction <= 0 {
		cfg.HNSWEfConstruction = 200
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	cli, err := client.NewClient(connectCtx, client.Config{Address: cfg.Addr, DBName: cfg.DBName})
	if err != nil {
		return nil, errors.ProviderError("vectorstore: failed to connect to milvus").WithCause(err)
	}

	store := &MilvusStore{cli: cli, collection: cfg.CollectionName, dimension: cfg.Dimension, log: log}
	if err := store.ensureCollection(ctx, cfg); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context, cfg MilvusConfig) error {
	has, err := s.cli.HasCollection(ctx, s.collection)
	if err != nil {
		return errors.ProviderError("vectorstore: has-collection check failed").WithCause(err)
	}
	if !has {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "docintel chunk embeddings",
			Fields: []*entity.Field{
				{Name: fieldChunkID, DataType: entity.FieldTypeVarChar, PrimaryKey: true, AutoID: false, TypeParams: map[string]string{"max_length": "512"}},
				{Name: fieldVector, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": itoa(cfg.Dimension)}},
				{Name: fieldContent, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": itoa(MaxContentLen)}},
				{Name: fieldFile, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "1024"}},
				{Name: fieldRelease, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
				{Name: fieldDocType, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
				{Name: fieldService, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "256"}},
				{Name: fieldHeading, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "512"}},
				{Name: fieldLineStart, DataType: entity.FieldTypeInt64},
				{Name: fieldLineEnd, DataType: entity.FieldTypeInt64},
				{Name: fieldChunkIndex, DataType: entity.FieldTypeInt64},
				{Name: fieldTokens, DataType: entity.FieldTypeInt64},
			},
		}
		if err := s.cli.CreateCollection(ctx, schema, 2); err != nil {
			return errors.ProviderError("vectorstore: failed to create collection").WithCause(err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, cfg.HNSWM, cfg.HNSWEfConstruction)
		if err != nil {
			return errors.ProviderError("vectorstore: failed to build HNSW index spec").WithCause(err)
		}
		if err := s.cli.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
			return errors.ProviderError("vectorstore: failed to create HNSW index").WithCause(err)
		}
	}

	if err := s.cli.LoadCollection(ctx, s.collection, false); err != nil {
		return errors.ProviderError("vectorstore: failed to load collection").WithCause(err)
	}
	return nil
}

// Upsert implements Store.
func (s *MilvusStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	contents := make([]string, len(records))
	files := make([]string, len(records))
	releases := make([]string, len(records))
	docTypes := make([]string, len(records))
	services := make([]string, len(records))
	headings := make([]string, len(records))
	lineStarts := make([]int64, len(records))
	lineEnds := make([]int64, len(records))
	chunkIndexes := make([]int64, len(records))
	tokens := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ChunkID
		vectors[i] = r.Vector
		contents[i] = truncateContent(r.Content)
		files[i] = r.File
		releases[i] = r.Release
		docTypes[i] = r.DocType
		services[i] = r.Service
		headings[i] = r.Heading
		lineStarts[i] = int64(r.LineStart)
		lineEnds[i] = int64(r.LineEnd)
		chunkIndexes[i] = int64(r.ChunkIndex)
		tokens[i] = int64(r.Tokens)
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(fieldChunkID, ids),
		entity.NewColumnFloatVector(fieldVector, s.dimension, vectors),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnVarChar(fieldFile, files),
		entity.NewColumnVarChar(fieldRelease, releases),
		entity.NewColumnVarChar(fieldDocType, docTypes),
		entity.NewColumnVarChar(fieldService, services),
		entity.NewColumnVarChar(fieldHeading, headings),
		entity.NewColumnInt64(fieldLineStart, lineStarts),
		entity.NewColumnInt64(fieldLineEnd, lineEnds),
		entity.NewColumnInt64(fieldChunkIndex, chunkIndexes),
		entity.NewColumnInt64(fieldTokens, tokens),
	}

	if _, err := s.cli.Upsert(ctx, s.collection, "", columns...); err != nil {
		return errors.ProviderError("vectorstore: upsert failed").WithCause(err)
	}
	return nil
}

// Search implements Store. ef is computed from topK via SearchEf.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, filter string) ([]Match, error) {
	if topK <= 0 {
		return nil, errors.InvalidParam("vectorstore: topK must be positive")
	}

	sp, err := entity.NewIndexHNSWSearchParam(SearchEf(topK))
	if err != nil {
		return nil, errors.ProviderError("vectorstore: failed to build search param").WithCause(err)
	}

	results, err := s.cli.Search(
		ctx, s.collection, []string{}, filter,
		[]string{
			fieldContent, fieldFile, fieldRelease, fieldDocType, fieldService, fieldHeading,
			fieldLineStart, fieldLineEnd, fieldChunkIndex, fieldTokens,
		},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, errors.ProviderError("vectorstore: search failed").WithCause(err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	return convertResult(results[0]), nil
}

func convertResult(res client.SearchResult) []Match {
	matches := make([]Match, 0, res.ResultCount)
	idCol, ok := res.IDs.(*entity.ColumnVarChar)
	if !ok {
		return matches
	}
	for i := 0; i < res.ResultCount; i++ {
		m := Match{ChunkID: idCol.Data()[i], Distance: float64(res.Scores[i])}
		for _, f := range res.Fields {
			switch col := f.(type) {
			case *entity.ColumnVarChar:
				val := col.Data()[i]
				switch f.Name() {
				case fieldContent:
					m.Content = val
				case fieldFile:
					m.File = val
				case fieldRelease:
					m.Release = val
				case fieldDocType:
					m.DocType = val
				case fieldService:
					m.Service = val
				case fieldHeading:
					m.Heading = val
				}
			case *entity.ColumnInt64:
				val := col.Data()[i]
				switch f.Name() {
				case fieldLineStart:
					m.LineStart = int(val)
				case fieldLineEnd:
					m.LineEnd = int(val)
				case fieldChunkIndex:
					m.ChunkIndex = int(val)
				case fieldTokens:
					m.Tokens = int(val)
				}
			}
		}
		matches = append(matches, m)
	}
	return matches
}

// Delete implements Store.
func (s *MilvusStore) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	expr := buildInExpr(fieldChunkID, chunkIDs)
	if err := s.cli.Delete(ctx, s.collection, "", expr); err != nil {
		return errors.ProviderError("vectorstore: delete failed").WithCause(err)
	}
	return nil
}

// Count implements Store.
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	stats, err := s.cli.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, errors.ProviderError("vectorstore: failed to fetch collection stats").WithCause(err)
	}
	return parseCount(stats), nil
}

func parseCount(stats map[string]string) int64 {
	raw, ok := stats["row_count"]
	if !ok {
		return 0
	}
	var n int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int64(r-'0')
	}
	return n
}

func buildInExpr(field string, values []string) string {
	expr := field + " in ["
	for i, v := range values {
		if i > 0 {
			expr += ", "
		}
		expr += `"` + v + `"`
	}
	return expr + "]"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
