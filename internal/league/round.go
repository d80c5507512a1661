package league

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// phaseOrder is the only path a round may take.
var phaseOrder = map[models.RoundStatus]int{
	models.StatusSubmission: 0,
	models.StatusVoting:     1,
	models.StatusCompleted:  2,
}

// CanAdvance reports whether target is the phase directly after from.
func CanAdvance(from, target models.RoundStatus) bool {
	f, ok := phaseOrder[from]
	if !ok {
		return false
	}
	t, ok := phaseOrder[target]
	if !ok {
		return false
	}
	return t == f+1
}

// Window holds the four phase timestamps of a round.
type Window struct {
	SubmissionStart time.Time `json:"submission_start"`
	SubmissionEnd   time.Time `json:"submission_end"`
	VotingStart     time.Time `json:"voting_start"`
	VotingEnd       time.Time `json:"voting_end"`
}

// Validate requires submissionStart < submissionEnd <= votingStart < votingEnd.
// Back-to-back phases are allowed.
func (w Window) Validate() error {
	switch {
	case w.SubmissionStart.IsZero() || w.SubmissionEnd.IsZero() || w.VotingStart.IsZero() || w.VotingEnd.IsZero():
		return fail(ErrInvalidWindow, "all four round timestamps are required")
	case !w.SubmissionStart.Before(w.SubmissionEnd):
		return fail(ErrInvalidWindow, "submission start must be before submission end")
	case w.VotingStart.Before(w.SubmissionEnd):
		return fail(ErrInvalidWindow, "voting cannot start before submissions end")
	case !w.VotingStart.Before(w.VotingEnd):
		return fail(ErrInvalidWindow, "voting start must be before voting end")
	}
	return nil
}

type NewRound struct {
	Theme       string `json:"theme"`
	Description string `json:"description"`
	Window
}

// RoundResult carries the round together with warnings from side effects that
// did not complete.
type RoundResult struct {
	Round    *models.Round `json:"round"`
	Warnings []string      `json:"warnings,omitempty"`
}

// CreateRound opens the next round of the league. Only the league admin may
// do so. The round number is the league's last number plus one; two admins
// racing here get a Conflict from the (league, number) unique index rather
// than a shared number.
func (s *Service) CreateRound(ctx context.Context, leagueID, actorID string, in NewRound) (*RoundResult, error) {
	league, err := database.GetLeagueByID(s.conn(ctx), leagueID)
	if err != nil {
		return nil, storageErr(err, "league")
	}
	if league.AdminID != actorID {
		return nil, fail(ErrUnauthorized, "only the league admin can create rounds")
	}
	if err := in.Window.Validate(); err != nil {
		return nil, err
	}

	last, err := database.GetLastRoundNumber(s.conn(ctx), league.ID)
	if err != nil {
		return nil, err
	}

	round := &models.Round{
		ID:              uuid.NewString(),
		LeagueID:        league.ID,
		RoundNumber:     last + 1,
		Theme:           in.Theme,
		Description:     in.Description,
		Status:          models.StatusSubmission,
		SubmissionStart: in.SubmissionStart,
		SubmissionEnd:   in.SubmissionEnd,
		VotingStart:     in.VotingStart,
		VotingEnd:       in.VotingEnd,
	}
	if err := database.CreateRound(s.conn(ctx), round); err != nil {
		if database.IsDuplicate(err) {
			return nil, fail(ErrConflict, fmt.Sprintf("round %d was created concurrently, retry", round.RoundNumber))
		}
		return nil, err
	}
	s.metrics.RoundCreated()
	zap.S().Infof("round %d (%s) created in league %s", round.RoundNumber, round.ID, league.Slug)

	result := &RoundResult{Round: round}
	if s.playlists != nil {
		id, url, err := s.playlists.CreatePlaylist(ctx, league, round)
		if err == nil {
			err = database.UpdateRoundPlaylist(s.conn(ctx), round.ID, id, url)
		}
		if err != nil {
			result.Warnings = append(result.Warnings, s.warn("playlist creation", err, "round", round.ID))
		} else {
			round.PlaylistID, round.PlaylistURL = id, url
		}
	}

	s.notifier.Notify(RoundEvent{Kind: EventRoundOpened, League: *league, Round: *round, At: s.now()})
	return result, nil
}

// AdvanceStatus moves a round one phase forward. Status is admin driven; the
// clock is only consulted by member actions.
func (s *Service) AdvanceStatus(ctx context.Context, roundID, actorID string, target models.RoundStatus) (*RoundResult, error) {
	round, err := database.GetRound(s.conn(ctx), roundID)
	if err != nil {
		return nil, storageErr(err, "round")
	}
	if round.League.AdminID != actorID {
		return nil, fail(ErrUnauthorized, "only the league admin can change round status")
	}
	if !CanAdvance(round.Status, target) {
		return nil, fail(ErrInvalidTransition, fmt.Sprintf("cannot move round from %s to %s", round.Status, target))
	}

	moved, err := database.AdvanceRoundStatus(s.conn(ctx), round.ID, round.Status, target)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fail(ErrInvalidTransition, fmt.Sprintf("round is no longer in %s", round.Status))
	}
	round.Status = target
	s.metrics.RoundAdvanced(target)
	zap.S().Infof("round %s advanced to %s", round.ID, target)

	result := &RoundResult{Round: round}
	event := RoundEvent{League: round.League, Round: *round, At: s.now()}
	switch target {
	case models.StatusVoting:
		event.Kind = EventVotingOpened
	case models.StatusCompleted:
		event.Kind = EventRoundCompleted
		results, err := s.revealedResults(ctx, round)
		if err != nil {
			result.Warnings = append(result.Warnings, s.warn("round results", err, "round", round.ID))
		}
		event.Results = results
	}
	s.notifier.Notify(event)

	return result, nil
}

// Finalize completes a round that is in voting.
func (s *Service) Finalize(ctx context.Context, roundID, actorID string) (*RoundResult, error) {
	return s.AdvanceStatus(ctx, roundID, actorID, models.StatusCompleted)
}

func (s *Service) GetRound(ctx context.Context, roundID string) (*models.Round, error) {
	round, err := database.GetRound(s.conn(ctx), roundID)
	if err != nil {
		return nil, storageErr(err, "round")
	}
	return round, nil
}

func (s *Service) ListRounds(ctx context.Context, leagueID string) ([]models.Round, error) {
	return database.GetRoundsByLeague(s.conn(ctx), leagueID)
}

func (s *Service) LeagueBySlug(ctx context.Context, slug string) (*models.League, error) {
	league, err := database.GetLeagueBySlug(s.conn(ctx), slug)
	if err != nil {
		return nil, storageErr(err, "league")
	}
	return league, nil
}

func (s *Service) revealedResults(ctx context.Context, round *models.Round) ([]SubmissionView, error) {
	views, err := s.GetVisibleSubmissions(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].TotalPoints > views[j].TotalPoints
	})
	return views, nil
}

// checkPhase rejects actions outside the given phase, by stored status and
// again by wall clock. Both must pass.
func checkPhase(round *models.Round, phase models.RoundStatus, now time.Time) error {
	var start, end time.Time
	var name string
	switch phase {
	case models.StatusSubmission:
		start, end, name = round.SubmissionStart, round.SubmissionEnd, "submission"
	case models.StatusVoting:
		start, end, name = round.VotingStart, round.VotingEnd, "voting"
	default:
		return fail(ErrPhaseClosed, "round is completed")
	}

	if round.Status != phase {
		return fail(ErrPhaseClosed, fmt.Sprintf("%s is not open for this round (status %s)", name, round.Status))
	}
	if now.Before(start) {
		return fail(ErrPhaseClosed, fmt.Sprintf("%s period has not started", name))
	}
	if now.After(end) {
		return fail(ErrPhaseClosed, fmt.Sprintf("%s period has ended", name))
	}
	return nil
}
