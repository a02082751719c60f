package statestore

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

const snapshotTimeout = 5 * time.Second

// Mongo is the durable RoomStateStore. Documents live in the
// room_states collection keyed by room id; patches become dotted-path
// $set/$unset updates, which gives the same per-field last-write-wins
// behavior the coordinator is specified against. Fan-out to subscribers
// happens in-process after each acknowledged write.
type Mongo struct {
	states   *mongo.Collection
	notifier *notifier
}

var _ domain.RoomStateStore = (*Mongo)(nil)

func NewMongo(database *mongo.Database) *Mongo {
	return &Mongo{
		states:   database.Collection(db.RoomStatesCollection),
		notifier: newNotifier(),
	}
}

func (s *Mongo) Read(ctx context.Context, roomID string) (*domain.RoomState, error) {
	var state domain.RoomState
	err := s.states.FindOne(ctx, bson.M{"_id": roomID}).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read room state %s: %w", roomID, err)
	}
	return state.Normalize(), nil
}

func (s *Mongo) Write(ctx context.Context, state *domain.RoomState) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.states.ReplaceOne(ctx, bson.M{"_id": state.RoomID}, state, opts); err != nil {
		return fmt.Errorf("write room state %s: %w", state.RoomID, err)
	}

	s.notifier.publish(state.RoomID, state)
	return nil
}

func (s *Mongo) Patch(ctx context.Context, roomID string, patch domain.StatePatch) error {
	if patch.IsZero() {
		return nil
	}

	set := bson.M{}
	if patch.ModeratorUIDs != nil {
		set["moderatorUids"] = *patch.ModeratorUIDs
	}
	if patch.SpeakerUIDs != nil {
		set["speakerUids"] = *patch.SpeakerUIDs
	}
	if patch.ListenerUIDs != nil {
		set["listenerUids"] = *patch.ListenerUIDs
	}
	if patch.RaisedHandUIDs != nil {
		set["raisedHandUids"] = *patch.RaisedHandUIDs
	}
	for uid, member := range patch.PutMembers {
		set["members."+uid] = member
	}
	for uid, role := range patch.SetRoles {
		set["members."+uid+".role"] = role
	}
	for uid, muted := range patch.SetMuted {
		set["members."+uid+".isMuted"] = muted
	}

	unset := bson.M{}
	for _, uid := range patch.RemoveMembers {
		unset["members."+uid] = ""
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	// No upsert: patching a closed or never-created room must stay a
	// no-op instead of resurrecting the document.
	res, err := s.states.UpdateOne(ctx, bson.M{"_id": roomID}, update)
	if err != nil {
		return fmt.Errorf("patch room state %s: %w", roomID, err)
	}
	if res.MatchedCount == 0 {
		return nil
	}

	state, err := s.Read(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomStateNotFound) {
			// Deleted between patch and read-back; the delete path
			// already notified subscribers.
			return nil
		}
		return err
	}

	s.notifier.publish(roomID, state)
	return nil
}

func (s *Mongo) Delete(ctx context.Context, roomID string) error {
	res, err := s.states.DeleteOne(ctx, bson.M{"_id": roomID})
	if err != nil {
		return fmt.Errorf("delete room state %s: %w", roomID, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoomStateNotFound
	}

	s.notifier.publish(roomID, nil)
	return nil
}

func (s *Mongo) Subscribe(roomID string, fn func(*domain.RoomState)) domain.UnsubscribeFunc {
	unsubscribe := s.notifier.subscribe(roomID, fn)

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snapshot, err := s.Read(ctx, roomID)
	if err != nil {
		// Absent room and read failure both surface as nil; the
		// subscriber treats the room as not (yet) available.
		snapshot = nil
	}

	fn(snapshot)
	return unsubscribe
}
