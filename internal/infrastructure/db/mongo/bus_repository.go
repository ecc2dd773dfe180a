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

const collectionBuses = "buses"

// BusRepository implements ports.BusRepository on MongoDB. Seat accounting
// rides on Mongo's atomic filtered updates: the capacity check and the
// decrement are one operation, so overselling is impossible regardless of how
// many processes book concurrently.
type BusRepository struct {
	coll *mongo.Collection
}

func NewBusRepository(db *mongo.Database) *BusRepository {
	return &BusRepository{coll: db.Collection(collectionBuses)}
}

type busDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	BusNumber     string             `bson:"bus_number"`
	Capacity      int                `bson:"capacity"`
	TotalCapacity int                `bson:"total_capacity"`
	Route         string             `bson:"route"`
	Status        string             `bson:"status"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func (d busDoc) toDomain() *domain.Bus {
	return &domain.Bus{
		ID:            d.ID.Hex(),
		BusNumber:     d.BusNumber,
		Capacity:      d.Capacity,
		TotalCapacity: d.TotalCapacity,
		Route:         d.Route,
		Status:        domain.BusStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (r *BusRepository) Create(ctx context.Context, bus *domain.Bus) (*domain.Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := busDoc{
		BusNumber:     bus.BusNumber,
		Capacity:      bus.Capacity,
		TotalCapacity: bus.TotalCapacity,
		Route:         bus.Route,
		Status:        string(bus.Status),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateBus
		}
		return nil, fmt.Errorf("insert bus: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *BusRepository) FindByID(ctx context.Context, id string) (*domain.Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBusNotFound
	}

	var doc busDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBusNotFound
		}
		return nil, fmt.Errorf("find bus: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *BusRepository) List(ctx context.Context) ([]*domain.Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}
	defer cur.Close(ctx)

	var buses []*domain.Bus
	for cur.Next(ctx) {
		var doc busDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode bus: %w", err)
		}
		buses = append(buses, doc.toDomain())
	}
	return buses, cur.Err()
}

func (r *BusRepository) Update(ctx context.Context, bus *domain.Bus) (*domain.Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(bus.ID)
	if err != nil {
		return nil, domain.ErrBusNotFound
	}

	update := bson.M{"$set": bson.M{
		"bus_number":     bus.BusNumber,
		"capacity":       bus.Capacity,
		"total_capacity": bus.TotalCapacity,
		"route":          bus.Route,
		"status":         string(bus.Status),
		"updated_at":     time.Now().UTC(),
	}}

	var doc busDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBusNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateBus
		}
		return nil, fmt.Errorf("update bus: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *BusRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrBusNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete bus: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrBusNotFound
	}
	return nil
}

// ReserveSeats performs the atomic check-and-decrement. The filter carries all
// preconditions (bus exists, is active, has enough seats); when it does not
// match, a follow-up read classifies the refusal.
func (r *BusRepository) ReserveSeats(ctx context.Context, busID string, seats int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(busID)
	if err != nil {
		return domain.ErrBusNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":      oid,
			"status":   string(domain.BusActive),
			"capacity": bson.M{"$gte": seats},
		},
		bson.M{
			"$inc": bson.M{"capacity": -seats},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	var doc busDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrBusNotFound
		}
		return fmt.Errorf("reserve seats: %w", err)
	}
	if domain.BusStatus(doc.Status) != domain.BusActive {
		return domain.ErrBusInactive
	}
	return domain.ErrCapacityExceeded
}

// ReleaseSeats returns seats to the bus after a cancellation or a compensated
// booking.
func (r *BusRepository) ReleaseSeats(ctx context.Context, busID string, seats int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(busID)
	if err != nil {
		return domain.ErrBusNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$inc": bson.M{"capacity": seats},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrBusNotFound
	}
	return nil
}

// EnsureIndexes creates the unique bus-number index.
func (r *BusRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bus_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
