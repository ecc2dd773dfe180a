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

const collectionParties = "parties"

// PartyRepository implements ports.PartyRepository on MongoDB.
type PartyRepository struct {
	coll *mongo.Collection
}

func NewPartyRepository(db *mongo.Database) *PartyRepository {
	return &PartyRepository{coll: db.Collection(collectionParties)}
}

type partyDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	LogoURL     string             `bson:"logo_url,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d partyDoc) toDomain() *domain.Party {
	return &domain.Party{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		LogoURL:     d.LogoURL,
		CreatedAt:   d.CreatedAt,
	}
}

func (r *PartyRepository) Create(ctx context.Context, party *domain.Party) (*domain.Party, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := partyDoc{
		Name:        party.Name,
		Description: party.Description,
		LogoURL:     party.LogoURL,
		CreatedAt:   time.Now().UTC(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateParty
		}
		return nil, fmt.Errorf("insert party: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *PartyRepository) FindByID(ctx context.Context, id string) (*domain.Party, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPartyNotFound
	}

	var doc partyDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPartyNotFound
		}
		return nil, fmt.Errorf("find party: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PartyRepository) List(ctx context.Context) ([]*domain.Party, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	defer cur.Close(ctx)

	var parties []*domain.Party
	for cur.Next(ctx) {
		var doc partyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode party: %w", err)
		}
		parties = append(parties, doc.toDomain())
	}
	return parties, cur.Err()
}

func (r *PartyRepository) Update(ctx context.Context, party *domain.Party) (*domain.Party, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(party.ID)
	if err != nil {
		return nil, domain.ErrPartyNotFound
	}

	var doc partyDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"name":        party.Name,
			"description": party.Description,
			"logo_url":    party.LogoURL,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPartyNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateParty
		}
		return nil, fmt.Errorf("update party: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PartyRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrPartyNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete party: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPartyNotFound
	}
	return nil
}

// EnsureIndexes creates the unique party-name index.
func (r *PartyRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
