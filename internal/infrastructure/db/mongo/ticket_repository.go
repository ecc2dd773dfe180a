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

const collectionTickets = "tickets"

// TicketRepository implements ports.TicketRepository on MongoDB.
type TicketRepository struct {
	coll *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{coll: db.Collection(collectionTickets)}
}

type ticketDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	BusID     string             `bson:"bus_id"`
	OwnerID   string             `bson:"owner_id"`
	Seats     int                `bson:"seats"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d ticketDoc) toDomain() *domain.Ticket {
	return &domain.Ticket{
		ID:        d.ID.Hex(),
		BusID:     d.BusID,
		OwnerID:   d.OwnerID,
		Seats:     d.Seats,
		Status:    domain.TicketStatus(d.Status),
		CreatedAt: d.CreatedAt,
	}
}

func (r *TicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := ticketDoc{
		BusID:     ticket.BusID,
		OwnerID:   ticket.OwnerID,
		Seats:     ticket.Seats,
		Status:    string(ticket.Status),
		CreatedAt: time.Now().UTC(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTicketNotFound
	}

	var doc ticketDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TicketRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Ticket, error) {
	return r.list(ctx, bson.M{"owner_id": ownerID})
}

func (r *TicketRepository) ListAll(ctx context.Context) ([]*domain.Ticket, error) {
	return r.list(ctx, bson.M{})
}

func (r *TicketRepository) list(ctx context.Context, filter bson.M) ([]*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer cur.Close(ctx)

	var tickets []*domain.Ticket
	for cur.Next(ctx) {
		var doc ticketDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode ticket: %w", err)
		}
		tickets = append(tickets, doc.toDomain())
	}
	return tickets, cur.Err()
}

// CancelIfBooked flips the status to canceled only when it is still booked,
// so a double cancel can never restore seats twice.
func (r *TicketRepository) CancelIfBooked(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTicketNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(domain.TicketBooked)},
		bson.M{"$set": bson.M{"status": string(domain.TicketCanceled)}},
	)
	if err != nil {
		return fmt.Errorf("cancel ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		if cnt, cntErr := r.coll.CountDocuments(ctx, bson.M{"_id": oid}); cntErr == nil && cnt == 0 {
			return domain.ErrTicketNotFound
		}
		return domain.ErrTicketCanceled
	}
	return nil
}

// RebookIfCanceled reverts a cancellation whose seat release failed, flipping
// the status back only when it is still canceled.
func (r *TicketRepository) RebookIfCanceled(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTicketNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(domain.TicketCanceled)},
		bson.M{"$set": bson.M{"status": string(domain.TicketBooked)}},
	)
	if err != nil {
		return fmt.Errorf("rebook ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

// HasBookedForBus reports whether any booked ticket still references the bus.
func (r *TicketRepository) HasBookedForBus(ctx context.Context, busID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cnt, err := r.coll.CountDocuments(ctx,
		bson.M{"bus_id": busID, "status": string(domain.TicketBooked)},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("count booked tickets: %w", err)
	}
	return cnt > 0, nil
}

// EnsureIndexes creates lookup indexes for owner and bus scans.
func (r *TicketRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "bus_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}
