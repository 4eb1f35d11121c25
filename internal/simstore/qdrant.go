package simstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

const qdrantMaxMessageSize = 32 * 1024 * 1024

// QdrantConfig holds connection settings for the Qdrant backend.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantStore is a store backed by an external Qdrant instance over
// gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	vectorSize int
}

// NewQdrantStore connects to Qdrant and ensures the collection exists.
func NewQdrantStore(ctx context.Context, cfg Config) (*QdrantStore, error) {
	if cfg.Qdrant.Host == "" {
		return nil, fmt.Errorf("%w: qdrant host required", ErrInvalidConfig)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(qdrantMaxMessageSize),
				grpc.MaxCallSendMsgSize(qdrantMaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", ErrStoreFailed, err)
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
	}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: checking collection %s: %v", ErrStoreFailed, cfg.Collection, err)
	}
	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(cfg.VectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: creating collection %s: %v", ErrStoreFailed, cfg.Collection, err)
		}
	}

	return s, nil
}

// pointID maps an error ID to a stable Qdrant UUID.
func pointID(errorID string) *qdrant.PointId {
	if _, err := uuid.Parse(errorID); err == nil {
		return qdrant.NewIDUUID(errorID)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(errorID)).String())
}

// Add upserts labeled embeddings.
func (s *QdrantStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		if rec.ErrorID == "" {
			return fmt.Errorf("%w: record %d has no error ID", ErrInvalidConfig, i)
		}
		points[i] = &qdrant.PointStruct{
			Id:      pointID(rec.ErrorID),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"error_id": rec.ErrorID,
				"cause":    rec.Cause,
				"text":     rec.Text,
			}),
		}
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("%w: upserting points: %v", ErrStoreFailed, err)
	}
	return nil
}

// Query returns the top-k most similar records.
func (s *QdrantStore) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = 1
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying: %v", ErrStoreFailed, err)
	}

	matches := make([]Match, 0, len(points))
	for _, point := range points {
		match := Match{Similarity: point.Score}
		if payload := point.Payload; payload != nil {
			if v, ok := payload["error_id"]; ok {
				match.ErrorID = v.GetStringValue()
			}
			if v, ok := payload["cause"]; ok {
				match.Cause = v.GetStringValue()
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Count returns the number of stored embeddings.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting: %v", ErrStoreFailed, err)
	}
	return int(count), nil
}

// Delete removes records by error ID.
func (s *QdrantStore) Delete(ctx context.Context, errorIDs []string) error {
	if len(errorIDs) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, len(errorIDs))
	for i, errorID := range errorIDs {
		ids[i] = pointID(errorID)
	}

	if _, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(ids...),
	}); err != nil {
		return fmt.Errorf("%w: deleting: %v", ErrStoreFailed, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
