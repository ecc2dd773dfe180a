package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
)

// PartyRepository persists votable parties.
type PartyRepository interface {
	Create(ctx context.Context, party *domain.Party) (*domain.Party, error)
	FindByID(ctx context.Context, id string) (*domain.Party, error)
	List(ctx context.Context) ([]*domain.Party, error)
	Update(ctx context.Context, party *domain.Party) (*domain.Party, error)
	Delete(ctx context.Context, id string) error
}

// PartyTally is the vote count for a single party.
type PartyTally struct {
	PartyID   string `json:"party_id"`
	PartyName string `json:"party_name"`
	Count     int64  `json:"count"`
}

// VoteRepository persists votes. Upsert replaces the owner's existing vote or
// inserts a new one in a single operation; a unique index on owner_id keeps
// the store at one vote per member even if two upserts race.
type VoteRepository interface {
	Upsert(ctx context.Context, ownerID, partyID string) (*domain.Vote, error)
	FindByOwner(ctx context.Context, ownerID string) (*domain.Vote, error)
	DeleteByOwner(ctx context.Context, ownerID string) error
	// DeleteByParty removes all votes for a party (cascade on party delete).
	DeleteByParty(ctx context.Context, partyID string) error
	ListAll(ctx context.Context) ([]*domain.Vote, error)
	TallyByParty(ctx context.Context) ([]PartyTally, error)
}
