// Package semantic owns all Qdrant operations for the listing index. The
// store accepts text and delegates embedding to an injected Embedder, so an
// add call produces and stores the vector atomically from the caller's view.
package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/stayscout/stayscout/engine/domain"
)

// DefaultTopK is the number of neighbors returned when the caller does not
// ask for a specific k.
const DefaultTopK = 3

// summaryKey is the payload key holding the indexed document text.
const summaryKey = "summary"

// VectorStore is the vector index adapter over Qdrant.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	embedder    Embedder
	logger      *slog.Logger
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr, collection string, embedder Embedder, logger *slog.Logger) (*VectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embedder:    embedder,
		logger:      logger,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection with the cosine metric if it does
// not exist yet. Cosine keeps similarity scores bounded in [0,1].
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Add embeds text and upserts the entry under the given stable id. A second
// add with the same id overwrites the prior entry.
func (v *VectorStore) Add(ctx context.Context, id, text string, meta domain.Metadata) error {
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("semantic: embed %s: %w", id, err)
	}

	wait := true
	_, err = v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(id)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vec},
				},
			},
			Payload: entryPayload(text, meta),
		}},
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %s: %w", id, err)
	}
	return nil
}

// Query embeds text and returns up to k nearest entries, most similar first.
// k <= 0 falls back to DefaultTopK. A collection holding fewer than k entries
// yields all of them without error.
func (v *VectorStore) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}

	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = hitFromPoint(r.GetId().GetUuid(), r.GetScore(), r.GetPayload())
	}
	return hits, nil
}

// PointID derives the deterministic Qdrant point UUID for a stable entry id.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("listing-"+id)).String()
}

func entryPayload(text string, meta domain.Metadata) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, 8)
	payload[summaryKey] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: text}}
	for k, val := range meta.Map() {
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: val}}
	}
	return payload
}

func hitFromPoint(id string, score float32, payload map[string]*pb.Value) Hit {
	meta := make(map[string]string, len(payload))
	var summary string
	for k, val := range payload {
		s := val.GetStringValue()
		if k == summaryKey {
			summary = s
			continue
		}
		meta[k] = s
	}
	return Hit{
		ID:      id,
		Score:   score,
		Summary: summary,
		Meta:    domain.MetadataFromMap(meta),
	}
}
