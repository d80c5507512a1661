package league

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/trackid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submitter identifies who entered a submission. It is only revealed once the
// round is completed.
type Submitter struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

type SubmissionView struct {
	ID          string       `json:"id"`
	RoundID     string       `json:"round_id"`
	Track       models.Track `json:"track"`
	TotalPoints int          `json:"total_points"`
	Submitter   *Submitter   `json:"submitter"`
	CreatedAt   time.Time    `json:"created_at"`
}

type SubmitResult struct {
	Submission *models.Submission `json:"submission"`
	Updated    bool               `json:"updated"` // an earlier entry was overwritten
	Warnings   []string           `json:"warnings,omitempty"`
}

// Submit records the member's track for the round. A member has at most one
// submission per round; submitting again before the deadline replaces the
// track and keeps the entry's identity and points.
func (s *Service) Submit(ctx context.Context, roundID, userID string, track models.Track) (*SubmitResult, error) {
	track.Name = strings.TrimSpace(track.Name)
	if !trackid.Valid(track.ID) {
		return nil, fail(ErrInvalidInput, "track id must be a 22-character catalog id")
	}
	if track.Name == "" {
		return nil, fail(ErrInvalidInput, "track name is required")
	}

	round, err := database.GetRound(s.conn(ctx), roundID)
	if err != nil {
		return nil, storageErr(err, "round")
	}
	if err := checkPhase(round, models.StatusSubmission, s.now()); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, round.LeagueID, userID, "submit"); err != nil {
		return nil, err
	}

	var previousTrack string
	existing, err := database.GetSubmissionByRoundAndUser(s.conn(ctx), round.ID, userID)
	switch {
	case err == nil:
		previousTrack = existing.Track.ID
	case !database.IsNotFound(err):
		return nil, err
	}

	sub := &models.Submission{
		ID:      uuid.NewString(),
		RoundID: round.ID,
		UserID:  userID,
		Track:   track,
	}
	if err := database.UpsertSubmission(s.conn(ctx), sub); err != nil {
		return nil, err
	}
	stored, err := database.GetSubmissionByRoundAndUser(s.conn(ctx), round.ID, userID)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Submission: stored, Updated: existing != nil}
	s.metrics.SubmissionRecorded(result.Updated)
	zap.S().Infof("submission %s recorded for round %s (updated=%v)", stored.ID, round.ID, result.Updated)

	if s.playlists != nil && track.ID != previousTrack {
		if err := s.addToPlaylist(ctx, round, track.ID); err != nil {
			result.Warnings = append(result.Warnings, s.warn("playlist update", err, "round", round.ID, "track", track.ID))
		}
	}
	return result, nil
}

func (s *Service) addToPlaylist(ctx context.Context, round *models.Round, trackID string) error {
	if round.PlaylistID == "" {
		return errors.New("round has no playlist")
	}
	return s.playlists.AddTracks(ctx, &round.League, round, []string{trackID})
}

// GetVisibleSubmissions lists a round's submissions. Submitter identity is
// withheld from every caller, the league admin included, until the round is
// completed.
func (s *Service) GetVisibleSubmissions(ctx context.Context, roundID string) ([]SubmissionView, error) {
	round, err := database.GetRound(s.conn(ctx), roundID)
	if err != nil {
		return nil, storageErr(err, "round")
	}
	subs, err := database.GetSubmissionsByRound(s.conn(ctx), round.ID)
	if err != nil {
		return nil, err
	}

	reveal := round.Status == models.StatusCompleted
	views := make([]SubmissionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, viewOf(sub, reveal))
	}
	return views, nil
}

// GetMemberSubmission returns the member's own entry for the round, fully
// revealed, or nil if they have not submitted.
func (s *Service) GetMemberSubmission(ctx context.Context, roundID, userID string) (*models.Submission, error) {
	sub, err := database.GetSubmissionByRoundAndUser(s.conn(ctx), roundID, userID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func viewOf(sub models.Submission, reveal bool) SubmissionView {
	view := SubmissionView{
		ID:          sub.ID,
		RoundID:     sub.RoundID,
		Track:       sub.Track,
		TotalPoints: sub.TotalPoints,
		CreatedAt:   sub.CreatedAt,
	}
	if reveal {
		view.Submitter = &Submitter{
			UserID:    sub.UserID,
			Username:  sub.User.Username,
			Nickname:  sub.User.Nickname,
			AvatarURL: sub.User.AvatarURL,
		}
	}
	return view
}
