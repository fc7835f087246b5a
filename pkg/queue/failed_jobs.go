package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FailedJobRecord is a job that exhausted its retries.
type FailedJobRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobType  string             `bson:"jobType"       json:"jobType"`
	Payload  string             `bson:"payload"       json:"payload"`
	Error    string             `bson:"error"         json:"error"`
	Attempts int                `bson:"attempts"      json:"attempts"`
	FailedAt time.Time          `bson:"failedAt"      json:"failedAt"`
}

// FailedStore persists exhausted jobs.
type FailedStore interface {
	Save(ctx context.Context, rec FailedJobRecord) error
	List(ctx context.Context, limit int64) ([]FailedJobRecord, error)
}

// ─── Memory ───────────────────────────────────────────────────────────────────

type MemoryFailedStore struct {
	mu   sync.Mutex
	recs []FailedJobRecord
}

func NewMemoryFailedStore() *MemoryFailedStore { return &MemoryFailedStore{} }

func (s *MemoryFailedStore) Save(_ context.Context, rec FailedJobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *MemoryFailedStore) List(_ context.Context, limit int64) ([]FailedJobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FailedJobRecord, 0, len(s.recs))
	for i := len(s.recs) - 1; i >= 0 && (limit <= 0 || int64(len(out)) < limit); i-- {
		out = append(out, s.recs[i])
	}
	return out, nil
}

// ─── Mongo ────────────────────────────────────────────────────────────────────

// MongoFailedStore writes to the failed_jobs collection.
type MongoFailedStore struct {
	coll *mongo.Collection
}

func NewMongoFailedStore(db *mongo.Database) *MongoFailedStore {
	return &MongoFailedStore{coll: db.Collection("failed_jobs")}
}

func (s *MongoFailedStore) Save(ctx context.Context, rec FailedJobRecord) error {
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("queue: save failed job: %w", err)
	}
	return nil
}

func (s *MongoFailedStore) List(ctx context.Context, limit int64) ([]FailedJobRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "failedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("queue: list failed jobs: %w", err)
	}
	var out []FailedJobRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("queue: decode failed jobs: %w", err)
	}
	return out, nil
}
