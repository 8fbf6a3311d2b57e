package conversationRepo

import (
	"context"
	"fmt"
	"time"

	"agendly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// stateDoc is the single row a conversation owns: the JSON-shaped dialogue
// state plus bookkeeping. The state is fully replaced on every write.
type stateDoc struct {
	ConversationID string               `bson:"_id"`
	State          models.DialogueState `bson:"state"`
	UpdatedAt      time.Time            `bson:"updatedAt"`
}

// MongoConversationRepo is a StateStore backed by a "conversations"
// collection, for deployments that persist dialogue state next to their
// records instead of in Redis. It satisfies dialogue.StateStore.
type MongoConversationRepo struct {
	coll *mongo.Collection
}

func NewMongoConversationRepo(db *mongo.Database) *MongoConversationRepo {
	return &MongoConversationRepo{coll: db.Collection("conversations")}
}

func (r *MongoConversationRepo) Load(ctx context.Context, conversationID string) (*models.DialogueState, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc stateDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dialogue state: %w", err)
	}
	return &doc.State, nil
}

func (r *MongoConversationRepo) Save(ctx context.Context, conversationID string, state *models.DialogueState) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if state == nil {
		if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": conversationID}); err != nil {
			return fmt.Errorf("failed to clear dialogue state: %w", err)
		}
		return nil
	}

	doc := stateDoc{
		ConversationID: conversationID,
		State:          *state,
		UpdatedAt:      time.Now().UTC(),
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": conversationID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store dialogue state: %w", err)
	}
	return nil
}
