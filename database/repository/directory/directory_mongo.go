package directoryRepo

import (
	"context"
	"fmt"
	"time"

	"agendly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DirectoryRepository loads the bookable people and services.
type DirectoryRepository interface {
	LoadDirectory(ctx context.Context) (models.Directory, error)
}

// MongoDirectoryRepo reads the "people" and "services" collections.
type MongoDirectoryRepo struct {
	peopleColl   *mongo.Collection
	servicesColl *mongo.Collection
}

func NewMongoDirectoryRepo(db *mongo.Database) *MongoDirectoryRepo {
	return &MongoDirectoryRepo{
		peopleColl:   db.Collection("people"),
		servicesColl: db.Collection("services"),
	}
}

func (r *MongoDirectoryRepo) LoadDirectory(ctx context.Context) (models.Directory, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var dir models.Directory

	cursor, err := r.peopleColl.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return dir, fmt.Errorf("failed to load people: %w", err)
	}
	if err := cursor.All(ctx, &dir.People); err != nil {
		return dir, fmt.Errorf("failed to decode people: %w", err)
	}

	cursor, err = r.servicesColl.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return dir, fmt.Errorf("failed to load services: %w", err)
	}
	if err := cursor.All(ctx, &dir.Services); err != nil {
		return dir, fmt.Errorf("failed to decode services: %w", err)
	}

	return dir, nil
}
