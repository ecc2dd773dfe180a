package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicore/community-api/internal/core/domain"
)

const collectionHabits = "habits"

// HabitRepository implements ports.HabitRepository on MongoDB. The streak
// write is guarded by a version field: CompleteIfVersion only matches the
// document when the version is unchanged since the caller's read.
type HabitRepository struct {
	coll *mongo.Collection
}

func NewHabitRepository(db *mongo.Database) *HabitRepository {
	return &HabitRepository{coll: db.Collection(collectionHabits)}
}

type habitDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID       string             `bson:"owner_id"`
	Name          string             `bson:"name"`
	Streak        int                `bson:"streak"`
	LastCompleted time.Time          `bson:"last_completed,omitempty"`
	Version       int64              `bson:"version"`
	CreatedAt     time.Time          `bson:"created_at"`
}

func (d habitDoc) toDomain() *domain.Habit {
	return &domain.Habit{
		ID:            d.ID.Hex(),
		OwnerID:       d.OwnerID,
		Name:          d.Name,
		Streak:        d.Streak,
		LastCompleted: d.LastCompleted,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
	}
}

func (r *HabitRepository) Create(ctx context.Context, habit *domain.Habit) (*domain.Habit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := habitDoc{
		OwnerID:   habit.OwnerID,
		Name:      habit.Name,
		CreatedAt: time.Now().UTC(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *HabitRepository) FindByID(ctx context.Context, id string) (*domain.Habit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrHabitNotFound
	}

	var doc habitDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *HabitRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Habit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer cur.Close(ctx)

	var habits []*domain.Habit
	for cur.Next(ctx) {
		var doc habitDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode habit: %w", err)
		}
		habits = append(habits, doc.toDomain())
	}
	return habits, cur.Err()
}

func (r *HabitRepository) Rename(ctx context.Context, id, name string) (*domain.Habit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrHabitNotFound
	}

	var doc habitDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"name": name}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("rename habit: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *HabitRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrHabitNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

// CompleteIfVersion writes the new streak only when the stored version still
// matches. A zero match against an existing habit means a concurrent
// completion won the race.
func (r *HabitRepository) CompleteIfVersion(ctx context.Context, id string, version int64, streak int, completedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrHabitNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "version": version},
		bson.M{
			"$set": bson.M{"streak": streak, "last_completed": completedAt.UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("complete habit: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a lost race from a deleted habit.
		if cnt, cntErr := r.coll.CountDocuments(ctx, bson.M{"_id": oid}); cntErr == nil && cnt == 0 {
			return domain.ErrHabitNotFound
		}
		return domain.ErrConflictingUpdate
	}
	return nil
}

// EnsureIndexes creates the owner listing index.
func (r *HabitRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
