package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/url-registry/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shortURLField = "shortUrl"

type urlDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	OriginalURL string             `bson:"originalUrl"`
	ShortURL    string             `bson:"shortUrl"`
	Clicks      int64              `bson:"clicks"`
	CreatedAt   time.Time          `bson:"createdAt"`
	ExpiresAt   *time.Time         `bson:"expiresAt,omitempty"`
}

func toDocument(url *entity.URL) urlDocument {
	return urlDocument{
		OriginalURL: url.OriginalURL,
		ShortURL:    url.ShortURL,
		Clicks:      url.Clicks,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
	}
}

func (d *urlDocument) toEntity() *entity.URL {
	return &entity.URL{
		ID:          d.ID.Hex(),
		OriginalURL: d.OriginalURL,
		ShortURL:    d.ShortURL,
		Clicks:      d.Clicks,
		CreatedAt:   d.CreatedAt,
		ExpiresAt:   d.ExpiresAt,
	}
}

type URLRepository struct {
	coll *mongo.Collection
}

func NewURLRepository(coll *mongo.Collection) *URLRepository {
	return &URLRepository{coll: coll}
}

// EnsureIndexes creates the unique index on the short URL field. It is a no-op when
// an identical index already exists.
func (r *URLRepository) EnsureIndexes(ctx context.Context) error {
	const op = "adapter.repository.mongodb.URLRepository.EnsureIndexes"

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: shortURLField, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create short url index: %w", op, err)
	}

	return nil
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.mongodb.URLRepository.Save"

	doc := toDocument(url)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortURLExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls collection: %w", op, err)
	}

	return doc.toEntity(), nil
}

func (r *URLRepository) FindByShortURL(ctx context.Context, shortURL string) (*entity.URL, error) {
	const op = "adapter.repository.mongodb.URLRepository.FindByShortURL"

	var doc urlDocument

	err := r.coll.FindOne(ctx, bson.M{shortURLField: shortURL}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to find document in urls collection: %w", op, err)
	}

	return doc.toEntity(), nil
}

func (r *URLRepository) IncrementClicks(ctx context.Context, shortURL string) (*entity.URL, error) {
	const op = "adapter.repository.mongodb.URLRepository.IncrementClicks"

	var doc urlDocument

	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{shortURLField: shortURL},
		bson.M{"$inc": bson.M{"clicks": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update document in urls collection: %w", op, err)
	}

	return doc.toEntity(), nil
}
