package agendaRepo

import (
	"context"
	"fmt"
	"time"

	"agendly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAgendaRepo stores booked events in an "events" collection and reads
// working-hours templates off the "people" collection.
type MongoAgendaRepo struct {
	eventColl  *mongo.Collection
	peopleColl *mongo.Collection
}

func NewMongoAgendaRepo(db *mongo.Database) *MongoAgendaRepo {
	return &MongoAgendaRepo{
		eventColl:  db.Collection("events"),
		peopleColl: db.Collection("people"),
	}
}

func (r *MongoAgendaRepo) WorkingHours(ctx context.Context, personName string) ([]models.WorkingWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var person models.ResolvedPerson
	err := r.peopleColl.FindOne(ctx, bson.M{"name": personName}).Decode(&person)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load working hours for %s: %w", personName, err)
	}
	return person.WorkingHours, nil
}

func (r *MongoAgendaRepo) EventsBetween(ctx context.Context, personName string, from, to time.Time) ([]models.AgendaEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"personName": personName,
		"start":      bson.M{"$lt": to},
		"end":        bson.M{"$gt": from},
	}
	cursor, err := r.eventColl.Find(ctx, filter, options.Find().SetSort(bson.M{"start": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	var events []models.AgendaEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// CreateEvent reserves the interval optimistically: check for an overlap,
// insert, then re-check. If a concurrent booking slipped in between the two
// checks, the insert is rolled back and the caller sees ErrSlotTaken.
func (r *MongoAgendaRepo) CreateEvent(ctx context.Context, event models.AgendaEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	overlap := bson.M{
		"personName": event.PersonName,
		"start":      bson.M{"$lt": event.End},
		"end":        bson.M{"$gt": event.Start},
	}
	count, err := r.eventColl.CountDocuments(ctx, overlap)
	if err != nil {
		return fmt.Errorf("failed to check event overlap: %w", err)
	}
	if count > 0 {
		return ErrSlotTaken
	}

	if _, err := r.eventColl.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	overlapOthers := bson.M{
		"personName": event.PersonName,
		"start":      bson.M{"$lt": event.End},
		"end":        bson.M{"$gt": event.Start},
		"_id":        bson.M{"$ne": event.ID},
	}
	count, err = r.eventColl.CountDocuments(ctx, overlapOthers)
	if err != nil {
		// The caller will report a failed booking; the insert must not
		// survive as a phantom event blocking the retry.
		if _, delErr := r.eventColl.DeleteOne(ctx, bson.M{"_id": event.ID}); delErr != nil {
			return fmt.Errorf("failed to roll back event %s after overlap re-check error: %w", event.ID, delErr)
		}
		return fmt.Errorf("failed to re-check event overlap: %w", err)
	}
	if count > 0 {
		if _, delErr := r.eventColl.DeleteOne(ctx, bson.M{"_id": event.ID}); delErr != nil {
			return fmt.Errorf("failed to roll back conflicting event %s: %w", event.ID, delErr)
		}
		return ErrSlotTaken
	}
	return nil
}
