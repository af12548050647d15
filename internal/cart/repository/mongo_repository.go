package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCartNotFound = errors.New("cart not found")

// cartDocument is the BSON shape of a cart. Prices are stored as decimal
// strings so they survive the round trip without float drift.
type cartDocument struct {
	SessionID string         `bson:"session_id"`
	Lines     []lineDocument `bson:"lines"`
	CreatedAt time.Time      `bson:"created_at,omitempty"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	ProductID      int64  `bson:"product_id"`
	DisplayName    string `bson:"display_name"`
	UnitListPrice  string `bson:"unit_list_price"`
	UnitFinalPrice string `bson:"unit_final_price"`
	Quantity       int    `bson:"quantity"`
	ImageRef       string `bson:"image_ref,omitempty"`
	SelectedColor  string `bson:"selected_color,omitempty"`
	SelectedSize   string `bson:"selected_size,omitempty"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection(cartsCollection),
	}
}

func (m *mongoRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc cartDocument

	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return fromDocument(doc)
}

// SaveCart replaces the whole snapshot. There is no version check, so
// concurrent writers for one session resolve to the last write.
func (m *mongoRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = now
	}
	cart.UpdatedAt = cart.UpdatedAt.UTC().Truncate(time.Millisecond)

	doc := toDocument(cart)
	update := bson.M{
		"$set": bson.M{
			"session_id": doc.SessionID,
			"lines":      doc.Lines,
			"updated_at": doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, bson.M{"session_id": cart.SessionID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

// DeleteCart is idempotent: a missing cart is not an error.
func (m *mongoRepository) DeleteCart(ctx context.Context, sessionID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 60 * 60), // abandoned carts
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func toDocument(cart *domain.Cart) cartDocument {
	lines := make([]lineDocument, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, lineDocument{
			ProductID:      l.ProductID,
			DisplayName:    l.DisplayName,
			UnitListPrice:  l.UnitListPrice.String(),
			UnitFinalPrice: l.UnitFinalPrice.String(),
			Quantity:       l.Quantity,
			ImageRef:       l.ImageRef,
			SelectedColor:  l.SelectedColor,
			SelectedSize:   l.SelectedSize,
		})
	}
	return cartDocument{
		SessionID: cart.SessionID,
		Lines:     lines,
		UpdatedAt: cart.UpdatedAt,
	}
}

func fromDocument(doc cartDocument) (*domain.Cart, error) {
	cart := &domain.Cart{
		SessionID: doc.SessionID,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, l := range doc.Lines {
		list, err := decimal.NewFromString(l.UnitListPrice)
		if err != nil {
			return nil, fmt.Errorf("corrupt list price for product %d: %w", l.ProductID, err)
		}
		final, err := decimal.NewFromString(l.UnitFinalPrice)
		if err != nil {
			return nil, fmt.Errorf("corrupt final price for product %d: %w", l.ProductID, err)
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:      l.ProductID,
			DisplayName:    l.DisplayName,
			UnitListPrice:  list,
			UnitFinalPrice: final,
			Quantity:       l.Quantity,
			ImageRef:       l.ImageRef,
			SelectedColor:  l.SelectedColor,
			SelectedSize:   l.SelectedSize,
		})
	}
	return cart, nil
}
