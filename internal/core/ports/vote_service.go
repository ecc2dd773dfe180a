package ports

import (
	"context"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
)

// PartyInput carries admin-provided party attributes.
type PartyInput struct {
	Name        string
	Description string
	LogoURL     string
}

// VoteService covers party administration, vote casting, and tallies.
type VoteService interface {
	CreateParty(ctx context.Context, input PartyInput) (*domain.Party, error)
	UpdateParty(ctx context.Context, partyID string, input PartyInput) (*domain.Party, error)
	// DeleteParty removes the party and cascades to its votes.
	DeleteParty(ctx context.Context, partyID string) error
	ListParties(ctx context.Context) ([]*domain.Party, error)
	GetParty(ctx context.Context, partyID string) (*domain.Party, error)

	// Cast records or replaces the subject's vote (upsert, never a second row).
	Cast(ctx context.Context, subject policy.Subject, partyID string) (*domain.Vote, error)
	Revoke(ctx context.Context, subject policy.Subject) error
	Mine(ctx context.Context, subject policy.Subject) (*domain.Vote, error)
	Tallies(ctx context.Context) ([]PartyTally, error)
	AllVotes(ctx context.Context) ([]*domain.Vote, error)
}
