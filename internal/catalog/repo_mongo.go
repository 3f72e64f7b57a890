package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores products in the "products" collection.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository constructs a document store repository.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{col: database.Collection("products")}
}

func mongoFilter(filter Filter) bson.M {
	query := bson.M{}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := primitiveRegex(term)
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"sku": pattern},
		}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	switch filter.Stock {
	case StockOut:
		query["quantity"] = bson.M{"$lte": 0}
	case StockLow:
		query["quantity"] = bson.M{"$gt": 0, "$lte": LowStockThreshold}
	case StockOK:
		query["quantity"] = bson.M{"$gt": LowStockThreshold}
	}
	return query
}

func primitiveRegex(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}

// List returns products matching filter ordered by name.
func (r *MongoRepository) List(ctx context.Context, filter Filter) ([]Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	var out []Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("catalog: decode list: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (Product, error) {
	var p Product
	if err := r.col.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// Get fetches a product by id.
func (r *MongoRepository) Get(ctx context.Context, id string) (Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetMany fetches the products that still exist among ids.
func (r *MongoRepository) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("catalog: get many: %w", err)
	}
	var products []Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// FindByBarcode looks a product up by its barcode.
func (r *MongoRepository) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	return r.findOne(ctx, bson.M{"barcode": barcode})
}

// Categories lists distinct non-empty categories.
func (r *MongoRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "category", bson.M{"category": bson.M{"$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("catalog: categories: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Create inserts a product.
func (r *MongoRepository) Create(ctx context.Context, p Product) (Product, error) {
	p.UpdatedAt = p.CreatedAt
	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return Product{}, fmt.Errorf("catalog: create: %w", err)
	}
	return p, nil
}

// Update applies patch and returns the previous and new document.
func (r *MongoRepository) Update(ctx context.Context, id string, patch Patch) (Product, Product, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.SKU != nil {
		set["sku"] = *patch.SKU
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Quantity != nil {
		set["quantity"] = *patch.Quantity
	}
	if patch.Barcode != nil {
		set["barcode"] = *patch.Barcode
	}
	var before Product
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Product{}, Product{}, ErrNotFound
		}
		return Product{}, Product{}, fmt.Errorf("catalog: update: %w", err)
	}
	after := patch.Apply(before)
	after.UpdatedAt = set["updatedAt"].(time.Time)
	return before, after, nil
}

// Delete removes a product.
func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementIfAvailable uses a $gte guard so the decrement applies atomically.
func (r *MongoRepository) DecrementIfAvailable(ctx context.Context, id string, qty int) (Product, error) {
	var p Product
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"quantity": -qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Product{}, getErr
		}
		return Product{}, ErrInsufficientStock
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: decrement: %w", err)
	}
	return p, nil
}

// SetQuantity overwrites the quantity on hand.
func (r *MongoRepository) SetQuantity(ctx context.Context, id string, qty int) (Product, error) {
	var p Product
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"quantity": qty, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: set quantity: %w", err)
	}
	return p, nil
}

// Upsert replaces the document by id, inserting when missing.
func (r *MongoRepository) Upsert(ctx context.Context, p Product) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("catalog: upsert: %w", err)
	}
	return nil
}

var _ Repository = (*MongoRepository)(nil)
