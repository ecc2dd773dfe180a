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
	"github.com/civicore/community-api/internal/core/ports"
)

const collectionVotes = "votes"

// VoteRepository implements ports.VoteRepository on MongoDB. The unique index
// on owner_id plus the single-operation upsert keep the one-vote-per-member
// invariant even when two casts for the same member race.
type VoteRepository struct {
	coll    *mongo.Collection
	parties *mongo.Collection
}

func NewVoteRepository(db *mongo.Database) *VoteRepository {
	return &VoteRepository{
		coll:    db.Collection(collectionVotes),
		parties: db.Collection(collectionParties),
	}
}

type voteDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID   string             `bson:"owner_id"`
	PartyID   string             `bson:"party_id"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d voteDoc) toDomain() *domain.Vote {
	return &domain.Vote{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		PartyID:   d.PartyID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// Upsert replaces the owner's vote or inserts a new one in one operation.
func (r *VoteRepository) Upsert(ctx context.Context, ownerID, partyID string) (*domain.Vote, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	var doc voteDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"owner_id": ownerID},
		bson.M{
			"$set":         bson.M{"party_id": partyID, "updated_at": now},
			"$setOnInsert": bson.M{"owner_id": ownerID, "created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("upsert vote: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *VoteRepository) FindByOwner(ctx context.Context, ownerID string) (*domain.Vote, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc voteDoc
	if err := r.coll.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrVoteNotFound
		}
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *VoteRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrVoteNotFound
	}
	return nil
}

func (r *VoteRepository) DeleteByParty(ctx context.Context, partyID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.DeleteMany(ctx, bson.M{"party_id": partyID})
	if err != nil {
		return fmt.Errorf("cascade votes: %w", err)
	}
	return nil
}

func (r *VoteRepository) ListAll(ctx context.Context) ([]*domain.Vote, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer cur.Close(ctx)

	var votes []*domain.Vote
	for cur.Next(ctx) {
		var doc voteDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode vote: %w", err)
		}
		votes = append(votes, doc.toDomain())
	}
	return votes, cur.Err()
}

// TallyByParty groups votes by party and joins the party name.
func (r *VoteRepository) TallyByParty(ctx context.Context) ([]ports.PartyTally, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$party_id",
			"count": bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"count": -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	defer cur.Close(ctx)

	var tallies []ports.PartyTally
	for cur.Next(ctx) {
		var row struct {
			PartyID string `bson:"_id"`
			Count   int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode tally: %w", err)
		}
		tally := ports.PartyTally{PartyID: row.PartyID, Count: row.Count}

		// Party ids are stored as hex strings on votes; resolve the display
		// name with a point read rather than a $lookup on mismatched types.
		if oid, oidErr := primitive.ObjectIDFromHex(row.PartyID); oidErr == nil {
			var p partyDoc
			if err := r.parties.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err == nil {
				tally.PartyName = p.Name
			}
		}
		tallies = append(tallies, tally)
	}
	return tallies, cur.Err()
}

// EnsureIndexes creates the unique owner index backing the one-vote-per-member
// invariant.
func (r *VoteRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
