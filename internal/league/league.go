package league

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// LeagueDetail is a league with its ranked members and rounds, newest first.
type LeagueDetail struct {
	League  *models.League `json:"league"`
	Members []Standing     `json:"members"`
	Rounds  []models.Round `json:"rounds"`
}

// CreateLeague creates a league owned by actor and enrolls actor as its first
// member. The slug is immutable once assigned.
func (s *Service) CreateLeague(ctx context.Context, actorID, name, slug, webhookURL string) (*models.League, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fail(ErrInvalidInput, "league name is required")
	}
	if !slugPattern.MatchString(slug) {
		return nil, fail(ErrInvalidInput, "slug must be 2-63 lowercase letters, digits or dashes")
	}
	if webhookURL != "" {
		u, err := url.Parse(webhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fail(ErrInvalidInput, "webhook must be an absolute http(s) URL")
		}
	}

	league := &models.League{
		ID:         uuid.NewString(),
		Name:       name,
		Slug:       slug,
		AdminID:    actorID,
		WebhookURL: webhookURL,
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.CreateLeague(tx, league); err != nil {
			if database.IsDuplicate(err) {
				return fail(ErrConflict, fmt.Sprintf("league slug %q is already taken", slug))
			}
			return err
		}
		return database.CreateLeagueMember(tx, &models.LeagueMember{
			ID:       uuid.NewString(),
			LeagueID: league.ID,
			UserID:   actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infof("league %s (%s) created by %s", league.Slug, league.ID, actorID)
	return league, nil
}

// JoinLeague adds actor to the league identified by slug.
func (s *Service) JoinLeague(ctx context.Context, actorID, slug string) (*models.LeagueMember, error) {
	league, err := database.GetLeagueBySlug(s.conn(ctx), slug)
	if err != nil {
		return nil, storageErr(err, "league")
	}

	member := &models.LeagueMember{
		ID:       uuid.NewString(),
		LeagueID: league.ID,
		UserID:   actorID,
	}
	if err := database.CreateLeagueMember(s.conn(ctx), member); err != nil {
		if database.IsDuplicate(err) {
			return nil, fail(ErrConflict, "you are already a member of this league")
		}
		return nil, err
	}
	return member, nil
}

// GetLeague returns the league with its leaderboard and rounds.
func (s *Service) GetLeague(ctx context.Context, slug string) (*LeagueDetail, error) {
	league, err := database.GetLeagueBySlug(s.conn(ctx), slug)
	if err != nil {
		return nil, storageErr(err, "league")
	}
	standings, err := s.Leaderboard(ctx, league.ID)
	if err != nil {
		return nil, err
	}
	rounds, err := database.GetRoundsByLeague(s.conn(ctx), league.ID)
	if err != nil {
		return nil, err
	}
	return &LeagueDetail{League: league, Members: standings, Rounds: rounds}, nil
}

func (s *Service) MyLeagues(ctx context.Context, actorID string) ([]models.League, error) {
	return database.GetLeaguesByMember(s.conn(ctx), actorID)
}

func (s *Service) ListLeagues(ctx context.Context) ([]models.League, error) {
	return database.GetAllLeagues(s.conn(ctx))
}

// SeasonScores aggregates completed-round totals for the league. It is a read
// path recomputed on every call.
func (s *Service) SeasonScores(ctx context.Context, leagueID string) (map[string]int, error) {
	rows, err := database.GetSeasonRows(s.conn(ctx), leagueID)
	if err != nil {
		return nil, err
	}
	scores := make([]RoundScore, len(rows))
	for i, r := range rows {
		scores[i] = RoundScore{UserID: r.UserID, RoundStatus: r.Status, TotalPoints: r.TotalPoints}
	}
	return SeasonScores(scores), nil
}

// Leaderboard lists every member with their season score, highest first.
// Members without completed-round points score 0.
func (s *Service) Leaderboard(ctx context.Context, leagueID string) ([]Standing, error) {
	members, err := database.GetLeagueMembers(s.conn(ctx), leagueID)
	if err != nil {
		return nil, err
	}
	season, err := s.SeasonScores(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	standings := make([]Standing, 0, len(members))
	for _, m := range members {
		standings = append(standings, Standing{
			UserID:     m.UserID,
			Username:   m.User.Username,
			Nickname:   m.User.Nickname,
			AvatarURL:  m.User.AvatarURL,
			TotalScore: season[m.UserID],
		})
	}
	RankStandings(standings)
	return standings, nil
}

func (s *Service) requireMember(ctx context.Context, leagueID, userID, action string) error {
	ok, err := database.IsLeagueMember(s.conn(ctx), leagueID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrUnauthorized, "only league members can "+action)
	}
	return nil
}
