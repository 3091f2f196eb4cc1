package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

const collectionMovements = "stock_movements"

var _ ports.MovementRepository = (*MovementRepository)(nil)

// MovementRepository implements ports.MovementRepository using MongoDB.
type MovementRepository struct {
	col *mongo.Collection
}

// NewMovementRepository creates a new MovementRepository.
func NewMovementRepository(db *mongo.Database) *MovementRepository {
	return &MovementRepository{col: db.Collection(collectionMovements)}
}

type movementDocument struct {
	SweetID    string    `bson:"sweetId"`
	Kind       string    `bson:"kind"`
	Amount     int       `bson:"amount"`
	Remaining  int       `bson:"remaining"`
	UserID     string    `bson:"userId"`
	At         time.Time `bson:"at"`
	RecordedAt time.Time `bson:"recordedAt"`
}

// Insert persists a movement to the stock_movements audit collection.
func (r *MovementRepository) Insert(ctx context.Context, m *domain.StockMovement) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := movementDocument{
		SweetID:    m.SweetID,
		Kind:       string(m.Kind),
		Amount:     m.Amount,
		Remaining:  m.Remaining,
		UserID:     m.UserID,
		At:         m.At.UTC(),
		RecordedAt: time.Now().UTC(),
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}

// ListBySweet returns up to limit movements of a sweet, newest first.
func (r *MovementRepository) ListBySweet(ctx context.Context, sweetID string, limit int) ([]*domain.StockMovement, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{"sweetId": sweetID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer cur.Close(ctx)

	var docs []movementDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode movements: %w", err)
	}

	out := make([]*domain.StockMovement, len(docs))
	for i, d := range docs {
		out[i] = &domain.StockMovement{
			SweetID:   d.SweetID,
			Kind:      domain.MovementKind(d.Kind),
			Amount:    d.Amount,
			Remaining: d.Remaining,
			UserID:    d.UserID,
			At:        d.At.UTC(),
		}
	}
	return out, nil
}

// EnsureIndexes creates the per-sweet history index.
func (r *MovementRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sweetId", Value: 1}, {Key: "at", Value: -1}},
	})
	return err
}
