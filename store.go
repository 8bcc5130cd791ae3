package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"

	"github.com/bitmark-inc/artist-portfolio/log"
)

const (
	imageCollectionName = "images"
	defaultDatabaseName = "portfolio"
)

var ErrImageNotFound = fmt.Errorf("image not found")

// listImagesSort orders by upload time. Object ids break ties between uploads
// stored within the same millisecond.
var listImagesSort = bson.D{
	{Key: "uploadedAt", Value: -1},
	{Key: "_id", Value: -1},
}

// ImageStore persists image records
type ImageStore interface {
	CreateImage(ctx context.Context, image NewImage) (ImageRecord, error)
	GetImage(ctx context.Context, id string) (ImageRecord, error)
	ListImages(ctx context.Context) ([]ImageRecord, error)
	// RenameImage updates the name of an image and returns the updated record.
	// It returns a nil record without error if the id matches nothing.
	RenameImage(ctx context.Context, id, name string) (*ImageRecord, error)
	DeleteImage(ctx context.Context, id string) error

	Close(ctx context.Context) error
}

type mongoImage struct {
	ID         primitive.ObjectID `bson:"_id"`
	Name       string             `bson:"name"`
	URL        string             `bson:"url"`
	PublicID   string             `bson:"public_id"`
	UploadedAt time.Time          `bson:"uploadedAt"`
}

func (m mongoImage) record() ImageRecord {
	return ImageRecord{
		ID:         m.ID.Hex(),
		Name:       m.Name,
		URL:        m.URL,
		PublicID:   m.PublicID,
		UploadedAt: m.UploadedAt,
	}
}

// NewMongodbImageStore connects to mongodb and returns an image store backed by
// the images collection. The database name falls back to the one in the uri.
func NewMongodbImageStore(ctx context.Context, mongodbURI, dbName string) (*MongodbImageStore, error) {
	if dbName == "" {
		cs, err := connstring.ParseAndValidate(mongodbURI)
		if err != nil {
			return nil, fmt.Errorf("invalid mongodb uri: %w", err)
		}
		dbName = cs.Database
	}
	if dbName == "" {
		dbName = defaultDatabaseName
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongodbURI))
	if err != nil {
		return nil, err
	}

	imageCollection := mongoClient.Database(dbName).Collection(imageCollectionName)
	if _, err := imageCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "uploadedAt", Value: -1}},
	}); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("fail to create image index: %w", err)
	}

	log.Info("connected to mongodb", zap.String("dbName", dbName), log.SourceMongo)

	s := NewMongodbImageStoreWithCollection(imageCollection)
	s.mongoClient = mongoClient
	return s, nil
}

// NewMongodbImageStoreWithCollection returns an image store on an existing collection
func NewMongodbImageStoreWithCollection(imageCollection *mongo.Collection) *MongodbImageStore {
	return &MongodbImageStore{
		imageCollection: imageCollection,
		now:             time.Now,
	}
}

type MongodbImageStore struct {
	mongoClient     *mongo.Client
	imageCollection *mongo.Collection

	now func() time.Time
}

// CreateImage inserts a new image record. The upload time is truncated to
// milliseconds which is the precision mongodb keeps.
func (s *MongodbImageStore) CreateImage(ctx context.Context, image NewImage) (ImageRecord, error) {
	doc := mongoImage{
		ID:         primitive.NewObjectID(),
		Name:       ImageName(image.Name),
		URL:        image.URL,
		PublicID:   image.PublicID,
		UploadedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	if _, err := s.imageCollection.InsertOne(ctx, doc); err != nil {
		return ImageRecord{}, err
	}

	return doc.record(), nil
}

// GetImage returns an image record by id
func (s *MongodbImageStore) GetImage(ctx context.Context, id string) (ImageRecord, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ImageRecord{}, ErrImageNotFound
	}

	var doc mongoImage
	if err := s.imageCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ImageRecord{}, ErrImageNotFound
		}
		return ImageRecord{}, err
	}

	return doc.record(), nil
}

// ListImages returns all image records, the most recent upload first
func (s *MongodbImageStore) ListImages(ctx context.Context) ([]ImageRecord, error) {
	cursor, err := s.imageCollection.Find(ctx, bson.M{}, options.Find().SetSort(listImagesSort))
	if err != nil {
		return nil, err
	}

	var docs []mongoImage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	images := make([]ImageRecord, 0, len(docs))
	for _, doc := range docs {
		images = append(images, doc.record())
	}

	return images, nil
}

// RenameImage sets the name of an image in a single find-and-modify operation
func (s *MongodbImageStore) RenameImage(ctx context.Context, id, name string) (*ImageRecord, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc mongoImage
	err = s.imageCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"name": name}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	record := doc.record()
	return &record, nil
}

// DeleteImage removes an image record by id
func (s *MongodbImageStore) DeleteImage(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrImageNotFound
	}

	r, err := s.imageCollection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if r.DeletedCount == 0 {
		return ErrImageNotFound
	}

	return nil
}

func (s *MongodbImageStore) Close(ctx context.Context) error {
	if s.mongoClient == nil {
		return nil
	}
	return s.mongoClient.Disconnect(ctx)
}
