package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/spigell/linkedai/internal/jobs"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	payloadTitle       = "title"
	payloadCompany     = "company"
	payloadLocation    = "location"
	payloadDescription = "description"
	payloadLink        = "link"
)

var ErrCollectionNotFound = errors.New("collection not found")

type Config struct {
	Host       string
	Port       int
	Collection string
}

// Store keeps job postings and their content vectors in a Qdrant collection.
type Store struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	collection  string
	logger      *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Store, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	store := newStore(qdrant.NewCollectionsClient(conn), qdrant.NewPointsClient(conn), cfg.Collection, logger)
	store.conn = conn

	return store, nil
}

func newStore(collections qdrant.CollectionsClient, points qdrant.PointsClient, collection string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		collections: collections,
		points:      points,
		collection:  collection,
		logger:      logger.With(zap.String("collection", collection)),
	}
}

func (s *Store) Collection() string {
	return s.collection
}

func (s *Store) exists(ctx context.Context) (bool, error) {
	resp, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}

	for _, col := range resp.GetCollections() {
		if col.GetName() == s.collection {
			return true, nil
		}
	}
	return false, nil
}

// VerifyCollection fails when the backend is unreachable or the collection is missing.
func (s *Store) VerifyCollection(ctx context.Context) error {
	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, s.collection)
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance when it does not exist.
// With recreate an existing collection is dropped first.
func (s *Store) EnsureCollection(ctx context.Context, dimension int, recreate bool) error {
	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}

	if ok && recreate {
		s.logger.Info("deleting collection")
		if _, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: s.collection}); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		ok = false
	}

	if ok {
		return nil
	}

	s.logger.Info("creating collection", zap.Int("dimension", dimension))
	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Upsert stores postings with their vectors. Re-upserting a posting with the same link replaces it.
func (s *Store) Upsert(ctx context.Context, postings []*jobs.Posting, vectors [][]float32) error {
	if len(postings) != len(vectors) {
		return fmt.Errorf("upsert: %d postings but %d vectors", len(postings), len(vectors))
	}
	if len(postings) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(postings))
	for i, posting := range postings {
		points = append(points, &qdrant.PointStruct{
			Id: PointID(posting),
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vectors[i]},
				},
			},
			Payload: toPayload(posting),
		})
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	s.logger.Debug("upserted points", zap.Int("count", len(points)))
	return nil
}

// Search returns the postings nearest to the vector in rank order.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]*jobs.Posting, error) {
	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	postings := make([]*jobs.Posting, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		postings = append(postings, fromPayload(point.GetPayload()))
		s.logger.Debug("search hit",
			zap.String("link", point.GetPayload()[payloadLink].GetStringValue()),
			zap.Float32("score", point.GetScore()),
		)
	}

	return postings, nil
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// PointID maps a posting to a Qdrant point ID. Numeric record IDs are used as is,
// anything else gets a name-based UUID of the link.
func PointID(posting *jobs.Posting) *qdrant.PointId {
	if num, err := strconv.ParseUint(posting.ID(), 10, 64); err == nil {
		return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: num}}
	}
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{
		Uuid: uuid.NewSHA1(uuid.NameSpaceURL, []byte(posting.Link)).String(),
	}}
}

func toPayload(posting *jobs.Posting) map[string]*qdrant.Value {
	str := func(v string) *qdrant.Value {
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}
	return map[string]*qdrant.Value{
		payloadTitle:       str(posting.Title),
		payloadCompany:     str(posting.Company),
		payloadLocation:    str(posting.Location),
		payloadDescription: str(posting.Description),
		payloadLink:        str(posting.Link),
	}
}

func fromPayload(payload map[string]*qdrant.Value) *jobs.Posting {
	return &jobs.Posting{
		Title:       payload[payloadTitle].GetStringValue(),
		Company:     payload[payloadCompany].GetStringValue(),
		Location:    payload[payloadLocation].GetStringValue(),
		Description: payload[payloadDescription].GetStringValue(),
		Link:        payload[payloadLink].GetStringValue(),
	}
}
