package repository

import (
	"context"

	"pitstop/database"
	"pitstop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationArchiveRepository persists finished conversation sessions for
// diagnostics. Live sessions stay in the Redis session store; this archive is
// written when a conversation reaches a terminal state.
type ConversationArchiveRepository interface {
	Archive(ctx context.Context, session *models.ConversationSession) error
	GetByID(ctx context.Context, id string) (*models.ConversationSession, error)
}

type mongoConversationRepo struct {
	coll *mongo.Collection
}

// NewMongoConversationRepo returns a ConversationArchiveRepository backed by MongoDB.
func NewMongoConversationRepo() ConversationArchiveRepository {
	db := database.MongoClient.Database("pitstop")
	return &mongoConversationRepo{
		coll: db.Collection("conversation_archive"),
	}
}

// Archive upserts the full session document, audit trail included.
func (r *mongoConversationRepo) Archive(ctx context.Context, session *models.ConversationSession) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": session.ID}, session, opts)
	return err
}

// GetByID returns an archived session by conversation id.
func (r *mongoConversationRepo) GetByID(ctx context.Context, id string) (*models.ConversationSession, error) {
	var session models.ConversationSession
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}
