package repository

import (
	"context"
	"errors"

	"pitstop/database"
	"pitstop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRecordRepository defines the interface for booking record data access.
// Records are immutable after creation, so there is no update path.
type BookingRecordRepository interface {
	Create(ctx context.Context, record *models.BookingRecord) error
	GetByID(ctx context.Context, id string) (*models.BookingRecord, error)
	GetByConversationID(ctx context.Context, conversationID string) (*models.BookingRecord, error)
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo returns a BookingRecordRepository backed by MongoDB.
func NewMongoBookingRepo() BookingRecordRepository {
	db := database.MongoClient.Database("pitstop")
	return &mongoBookingRepo{
		coll: db.Collection("booking_records"),
	}
}

// Create inserts a new booking record.
func (r *mongoBookingRepo) Create(ctx context.Context, record *models.BookingRecord) error {
	if record.ID == "" {
		return errors.New("booking record id is required")
	}
	_, err := r.coll.InsertOne(ctx, record)
	return err
}

// GetByID returns a booking record by its ID.
func (r *mongoBookingRepo) GetByID(ctx context.Context, id string) (*models.BookingRecord, error) {
	var record models.BookingRecord
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByConversationID returns the booking record emitted by a conversation,
// if any.
func (r *mongoBookingRepo) GetByConversationID(ctx context.Context, conversationID string) (*models.BookingRecord, error) {
	var record models.BookingRecord
	if err := r.coll.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}
