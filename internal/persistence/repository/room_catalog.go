package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amachi/voicedeck/internal/domain"
	"github.com/amachi/voicedeck/internal/persistence/db"
)

type roomCatalog struct {
	db *mongo.Database
}

func NewRoomCatalog(database *mongo.Database) domain.RoomCatalog {
	return &roomCatalog{
		db: database,
	}
}

func (r *roomCatalog) Create(ctx context.Context, room *domain.Room) error {
	collection := r.db.Collection(db.RoomsCollection)

	_, err := collection.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrRoomAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}
	return nil
}

func (r *roomCatalog) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	var room domain.Room
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	return &room, nil
}

// ListActive returns open public rooms for the lobby, newest first.
func (r *roomCatalog) ListActive(ctx context.Context, limit int) ([]domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	filter := bson.M{
		"isActive": true,
		"isPublic": true,
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []domain.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *roomCatalog) SetParticipantCount(ctx context.Context, id string, count int) error {
	collection := r.db.Collection(db.RoomsCollection)

	if count < 0 {
		count = 0
	}

	res, err := collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"participantCount": count}},
	)
	if err != nil {
		return fmt.Errorf("set participant count for room %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

// Close flips the room to inactive and records when; the entry stays
// around for history rather than being deleted.
func (r *roomCatalog) Close(ctx context.Context, id string) (*domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	now := time.Now()
	update := bson.M{"$set": bson.M{
		"isActive": false,
		"closedAt": now,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var room domain.Room
	err := collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("close room %s: %w", id, err)
	}
	return &room, nil
}

func (r *roomCatalog) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.RoomsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "isActive", Value: 1},
				{Key: "isPublic", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "hostId", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
