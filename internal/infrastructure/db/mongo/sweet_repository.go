package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

const collectionSweets = "sweets"

// SweetRepository implements ports.SweetRepository using MongoDB.
type SweetRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewSweetRepository(db *mongo.Database) *SweetRepository {
	return &SweetRepository{col: db.Collection(collectionSweets), now: time.Now}
}

type sweetDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Category    string             `bson:"category"`
	Price       float64            `bson:"price"`
	Quantity    int                `bson:"quantity"`
	Description string             `bson:"description,omitempty"`
	ImageURL    string             `bson:"imageUrl"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *sweetDocument) toDomain() *domain.Sweet {
	return &domain.Sweet{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Category:    domain.Category(d.Category),
		Price:       d.Price,
		Quantity:    d.Quantity,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// Create inserts a new sweet document.
func (r *SweetRepository) Create(ctx context.Context, s *domain.Sweet) (*domain.Sweet, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := sweetDocument{
		Name:        s.Name,
		Category:    string(s.Category),
		Price:       s.Price,
		Quantity:    s.Quantity,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert sweet: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

// FindByID retrieves a sweet. Malformed ids are reported as not found.
func (r *SweetRepository) FindByID(ctx context.Context, id string) (*domain.Sweet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSweetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc sweetDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSweetNotFound
		}
		return nil, fmt.Errorf("find sweet: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns every sweet matching filter, newest first.
func (r *SweetRepository) List(ctx context.Context, filter ports.SweetFilter) ([]*domain.Sweet, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, buildSweetFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list sweets: %w", err)
	}
	defer cur.Close(ctx)

	var docs []sweetDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sweets: %w", err)
	}

	out := make([]*domain.Sweet, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}

// buildSweetFilter translates the search predicates into a query document.
// The name is matched literally as a case-insensitive substring.
func buildSweetFilter(f ports.SweetFilter) bson.M {
	q := bson.M{}
	if f.Name != "" {
		q["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Name), Options: "i"}
	}
	if f.Category != nil {
		q["category"] = string(*f.Category)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		q["price"] = price
	}
	return q
}

// Update sets the patched attributes and returns the stored result.
func (r *SweetRepository) Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSweetNotFound
	}

	set := bson.M{"updatedAt": r.now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Category != nil {
		set["category"] = string(*patch.Category)
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Quantity != nil {
		set["quantity"] = *patch.Quantity
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.ImageURL != nil {
		set["imageUrl"] = *patch.ImageURL
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
}

// Delete removes a sweet.
func (r *SweetRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrSweetNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete sweet: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrSweetNotFound
	}
	return nil
}

// DecreaseQuantity atomically applies quantity -= amount only while the
// stored quantity is >= amount. When no document matched, a follow-up
// existence check tells a missing sweet from insufficient stock; it does not
// take part in the decision to write.
func (r *SweetRepository) DecreaseQuantity(ctx context.Context, id string, amount int) (*domain.Sweet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSweetNotFound
	}

	filter := bson.M{"_id": oid, "quantity": bson.M{"$gte": amount}}
	update := bson.M{
		"$inc": bson.M{"quantity": -amount},
		"$set": bson.M{"updatedAt": r.now().UTC()},
	}

	sweet, err := r.findOneAndUpdate(ctx, filter, update)
	if !errors.Is(err, domain.ErrSweetNotFound) {
		return sweet, err
	}

	exists, err := r.exists(ctx, oid)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrInsufficientStock
	}
	return nil, domain.ErrSweetNotFound
}

// IncreaseQuantity atomically applies quantity += amount.
func (r *SweetRepository) IncreaseQuantity(ctx context.Context, id string, amount int) (*domain.Sweet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSweetNotFound
	}

	update := bson.M{
		"$inc": bson.M{"quantity": amount},
		"$set": bson.M{"updatedAt": r.now().UTC()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, update)
}

// EnsureIndexes creates the indexes backing listing and search.
func (r *SweetRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *SweetRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Sweet, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc sweetDocument
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSweetNotFound
		}
		return nil, fmt.Errorf("update sweet: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *SweetRepository) exists(ctx context.Context, oid primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count sweet: %w", err)
	}
	return n > 0, nil
}
