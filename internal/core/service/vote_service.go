package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicore/community-api/internal/api/metrics"
	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/policy"
	"github.com/civicore/community-api/internal/core/ports"
)

// VoteService implements party administration and the one-vote-per-member
// ledger.
type VoteService struct {
	parties  ports.PartyRepository
	votes    ports.VoteRepository
	activity ports.ActivityRecorder
	log      zerolog.Logger
}

func NewVoteService(parties ports.PartyRepository, votes ports.VoteRepository, activity ports.ActivityRecorder, log zerolog.Logger) *VoteService {
	return &VoteService{parties: parties, votes: votes, activity: activity, log: log}
}

func (s *VoteService) CreateParty(ctx context.Context, input ports.PartyInput) (*domain.Party, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: party name is required", domain.ErrValidation)
	}
	return s.parties.Create(ctx, &domain.Party{
		Name:        name,
		Description: input.Description,
		LogoURL:     input.LogoURL,
	})
}

func (s *VoteService) UpdateParty(ctx context.Context, partyID string, input ports.PartyInput) (*domain.Party, error) {
	existing, err := s.parties.FindByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: party name is required", domain.ErrValidation)
	}
	existing.Name = name
	existing.Description = input.Description
	existing.LogoURL = input.LogoURL
	return s.parties.Update(ctx, existing)
}

// DeleteParty removes the party and cascades to every vote cast for it.
func (s *VoteService) DeleteParty(ctx context.Context, partyID string) error {
	if err := s.parties.Delete(ctx, partyID); err != nil {
		return err
	}
	if err := s.votes.DeleteByParty(ctx, partyID); err != nil {
		// The party is gone; orphaned votes only skew tallies, so log and
		// carry on rather than failing the delete.
		s.log.Error().Err(err).Str("party_id", partyID).Msg("failed to cascade votes for deleted party")
	}
	return nil
}

func (s *VoteService) ListParties(ctx context.Context) ([]*domain.Party, error) {
	return s.parties.List(ctx)
}

func (s *VoteService) GetParty(ctx context.Context, partyID string) (*domain.Party, error) {
	return s.parties.FindByID(ctx, partyID)
}

// Cast records or replaces the subject's vote. The storage upsert plus the
// unique index on owner_id guarantee a single row per member even when two
// casts race.
func (s *VoteService) Cast(ctx context.Context, subject policy.Subject, partyID string) (*domain.Vote, error) {
	if d := policy.Check(subject, policy.ActionVoteCast, ""); !d.Allow {
		return nil, d.Reason
	}

	if _, err := s.parties.FindByID(ctx, partyID); err != nil {
		return nil, err
	}

	vote, err := s.votes.Upsert(ctx, subject.ID, partyID)
	if err != nil {
		metrics.VotesCastTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.VotesCastTotal.WithLabelValues("cast").Inc()
	s.activity.Record(domain.ActivityEvent{
		ActorID:    subject.ID,
		Action:     domain.ActivityVoteCast,
		Resource:   "party",
		ResourceID: partyID,
		OccurredAt: time.Now().UTC(),
	})
	return vote, nil
}

func (s *VoteService) Revoke(ctx context.Context, subject policy.Subject) error {
	if d := policy.Check(subject, policy.ActionVoteRevoke, ""); !d.Allow {
		return d.Reason
	}
	if err := s.votes.DeleteByOwner(ctx, subject.ID); err != nil {
		return err
	}
	s.activity.Record(domain.ActivityEvent{
		ActorID:    subject.ID,
		Action:     domain.ActivityVoteRevoked,
		Resource:   "vote",
		ResourceID: subject.ID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (s *VoteService) Mine(ctx context.Context, subject policy.Subject) (*domain.Vote, error) {
	if d := policy.Check(subject, policy.ActionVoteMine, ""); !d.Allow {
		return nil, d.Reason
	}
	return s.votes.FindByOwner(ctx, subject.ID)
}

func (s *VoteService) Tallies(ctx context.Context) ([]ports.PartyTally, error) {
	return s.votes.TallyByParty(ctx)
}

func (s *VoteService) AllVotes(ctx context.Context) ([]*domain.Vote, error) {
	return s.votes.ListAll(ctx)
}
