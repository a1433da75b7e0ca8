package weaviate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"tabrecall/backend/internal/index"
	"tabrecall/backend/internal/vector"
)

// Store implements index.RemoteBackend against a Weaviate class. Weaviate
// object ids must be UUIDs, so the index-level id is stored in the docId
// property and the object id is derived from it deterministically.
type Store struct {
	client    *weaviate.Client
	className string
}

func NewStore(client *weaviate.Client, className string) *Store {
	return &Store{client: client, className: className}
}

func (s *Store) objectID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID)).String()
}

// Ready ensures the class schema exists. Called under the remote tier's
// timeout and retry policy.
func (s *Store) Ready(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("%w: no weaviate client", index.ErrBadConfig)
	}
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client), s.className)
}

func (s *Store) Upsert(ctx context.Context, id string, vec []float32, meta index.Metadata) error {
	props := map[string]interface{}{
		"docId":       id,
		"url":         meta.URL,
		"title":       meta.Title,
		"snippet":     meta.Snippet,
		"timestamp":   meta.Timestamp,
		"chunkIndex":  meta.ChunkIndex,
		"totalChunks": meta.TotalChunks,
	}
	// Optional fields are omitted rather than sent as nulls.
	if meta.ParentID != "" {
		props["parentId"] = meta.ParentID
	}
	if meta.Summary != "" {
		props["summary"] = meta.Summary
	}
	if meta.ReadingTime > 0 {
		props["readingTime"] = meta.ReadingTime
	}
	if meta.WordCount > 0 {
		props["wordCount"] = meta.WordCount
	}

	// PUT semantics: creates the object or replaces an existing one.
	return s.client.Data().Updater().
		WithClassName(s.className).
		WithID(s.objectID(id)).
		WithProperties(props).
		WithVector(vec).
		Do(ctx)
}

func (s *Store) Query(ctx context.Context, vec []float32, limit int) ([]index.QueryResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "docId"},
		{Name: "url"},
		{Name: "title"},
		{Name: "snippet"},
		{Name: "timestamp"},
		{Name: "summary"},
		{Name: "readingTime"},
		{Name: "wordCount"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []index.QueryResult
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return results, nil
	}
	objects, ok := data[s.className].([]interface{})
	if !ok {
		return results, nil
	}

	for _, o := range objects {
		props, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		result := index.QueryResult{}
		if v, ok := props["docId"].(string); ok {
			result.ID = v
		}
		if v, ok := props["url"].(string); ok {
			result.URL = v
		}
		if v, ok := props["title"].(string); ok {
			result.Title = v
		}
		if v, ok := props["snippet"].(string); ok {
			result.Snippet = v
		}
		if v, ok := props["timestamp"].(string); ok {
			result.Timestamp = v
		}
		if v, ok := props["summary"].(string); ok {
			result.Summary = v
		}
		if v, ok := props["readingTime"].(float64); ok {
			result.ReadingTime = int(v)
		}
		if v, ok := props["wordCount"].(float64); ok {
			result.WordCount = int(v)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			// Certainty arrives as a JSON number, but some server versions
			// serialize additional fields as strings.
			if c, ok := additional["certainty"].(float64); ok {
				result.Score = c
			} else if c, ok := additional["certainty"].(string); ok {
				var f float64
				if _, err := fmt.Sscanf(c, "%f", &f); err == nil {
					result.Score = f
				}
			}
		}
		results = append(results, result)
	}

	return results, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"docId"}).
			WithOperator(filters.Equal).
			WithValueString(id)).
		Do(ctx)
	if err != nil {
		return false, err
	}
	if resp != nil && resp.Results != nil {
		return resp.Results.Matches > 0, nil
	}
	return false, nil
}

// DeleteByParent removes every chunk whose parentId back-reference equals
// parentID. The filter scan stands in for a secondary index.
func (s *Store) DeleteByParent(ctx context.Context, parentID string) (int, error) {
	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"parentId"}).
			WithOperator(filters.Equal).
			WithValueString(parentID)).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if resp != nil && resp.Results != nil {
		return int(resp.Results.Matches), nil
	}
	return 0, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	data, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := data[s.className].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}
