package league

import (
	"context"
	"fmt"

	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MinPoints = 1
	MaxPoints = 5
)

// CastVote gives points to another member's submission. Preconditions are
// checked in a fixed order: points range, round phase and window, submission
// ownership by the round, not the voter's own entry, league membership.
//
// The vote upsert and the recomputation of the submission's cached total run
// in one transaction that first locks the submission row, so concurrent voters
// on the same submission serialize and the total always equals the sum of the
// stored votes.
func (s *Service) CastVote(ctx context.Context, roundID, voterID, submissionID string, points int) (*models.Vote, error) {
	if points < MinPoints || points > MaxPoints {
		return nil, fail(ErrInvalidPoints, fmt.Sprintf("points must be between %d and %d", MinPoints, MaxPoints))
	}

	round, err := database.GetRound(s.conn(ctx), roundID)
	if err != nil {
		return nil, storageErr(err, "round")
	}
	if err := checkPhase(round, models.StatusVoting, s.now()); err != nil {
		return nil, err
	}

	sub, err := database.GetSubmission(s.conn(ctx), submissionID)
	if err != nil {
		return nil, storageErr(err, "submission")
	}
	if sub.RoundID != round.ID {
		return nil, fail(ErrNotFound, "submission not found in this round")
	}
	if sub.UserID == voterID {
		return nil, fail(ErrSelfVote, "you cannot vote for your own submission")
	}
	if err := s.requireMember(ctx, round.LeagueID, voterID, "vote"); err != nil {
		return nil, err
	}

	var vote *models.Vote
	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := database.GetSubmissionForUpdate(tx, sub.ID); err != nil {
			return storageErr(err, "submission")
		}
		if err := database.UpsertVote(tx, &models.Vote{
			ID:           uuid.NewString(),
			RoundID:      round.ID,
			UserID:       voterID,
			SubmissionID: sub.ID,
			Points:       points,
		}); err != nil {
			return err
		}
		if _, err := recomputeTotal(tx, sub.ID); err != nil {
			return err
		}

		stored, err := database.GetVotesByRoundAndUser(tx, round.ID, voterID)
		if err != nil {
			return err
		}
		for i := range stored {
			if stored[i].SubmissionID == sub.ID {
				vote = &stored[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.VoteCast()
	zap.S().Debugf("vote by %s on submission %s set to %d", voterID, sub.ID, points)
	return vote, nil
}

// recomputeTotal rebuilds the cached total from the authoritative vote set.
// The total is never adjusted incrementally.
func recomputeTotal(tx *gorm.DB, submissionID string) (int, error) {
	votes, err := database.GetVotesBySubmission(tx, submissionID)
	if err != nil {
		return 0, err
	}
	total := TotalPoints(votes)
	if err := database.UpdateSubmissionTotal(tx, submissionID, total); err != nil {
		return 0, err
	}
	return total, nil
}

// GetVotesByMember returns the votes the member has cast in the round.
func (s *Service) GetVotesByMember(ctx context.Context, roundID, userID string) ([]models.Vote, error) {
	return database.GetVotesByRoundAndUser(s.conn(ctx), roundID, userID)
}

// RecalculateSubmission rebuilds one submission's cached total.
func (s *Service) RecalculateSubmission(ctx context.Context, submissionID string) (int, error) {
	var total int
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := database.GetSubmissionForUpdate(tx, submissionID); err != nil {
			return storageErr(err, "submission")
		}
		var err error
		total, err = recomputeTotal(tx, submissionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// RecalculateRound rebuilds the cached totals of every submission in a round
// and returns them by submission id.
func (s *Service) RecalculateRound(ctx context.Context, roundID string) (map[string]int, error) {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	ids, err := database.GetSubmissionIDsByRound(s.conn(ctx), roundID)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int, len(ids))
	for _, id := range ids {
		total, err := s.RecalculateSubmission(ctx, id)
		if err != nil {
			return nil, err
		}
		totals[id] = total
	}
	return totals, nil
}
