package database

import (
	"errors"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserBySpotifyID(db *gorm.DB, spotifyID string) (*models.User, error) {
	var user models.User
	if err := db.Where("spotify_id = ?", spotifyID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateUser(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

// UpdateUserSpotifyTokens stores a freshly issued token pair. An empty refresh
// token keeps the stored one, since Spotify does not always rotate it.
func UpdateUserSpotifyTokens(db *gorm.DB, userID, accessToken, refreshToken string, expiry time.Time) error {
	updates := map[string]interface{}{
		"spotify_access_token": accessToken,
		"spotify_token_expiry": expiry,
	}
	if refreshToken != "" {
		updates["spotify_refresh_token"] = refreshToken
	}
	return db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

// League CRUD
func CreateLeague(db *gorm.DB, league *models.League) error {
	return db.Omit(clause.Associations).Create(league).Error
}

func GetLeagueByID(db *gorm.DB, id string) (*models.League, error) {
	var league models.League
	if err := db.Preload("Admin").Where("id = ?", id).First(&league).Error; err != nil {
		return nil, err
	}
	return &league, nil
}

func GetLeagueBySlug(db *gorm.DB, slug string) (*models.League, error) {
	var league models.League
	if err := db.Preload("Admin").Where("slug = ?", slug).First(&league).Error; err != nil {
		return nil, err
	}
	return &league, nil
}

func GetAllLeagues(db *gorm.DB) ([]models.League, error) {
	var leagues []models.League
	if err := db.Preload("Admin").Order("created_at asc").Find(&leagues).Error; err != nil {
		return nil, err
	}
	return leagues, nil
}

func GetLeaguesByMember(db *gorm.DB, userID string) ([]models.League, error) {
	var leagues []models.League
	err := db.Preload("Admin").
		Joins("join league_members on league_members.league_id = leagues.id").
		Where("league_members.user_id = ?", userID).
		Order("league_members.joined_at asc").
		Find(&leagues).Error
	if err != nil {
		return nil, err
	}
	return leagues, nil
}

// Membership
func CreateLeagueMember(db *gorm.DB, member *models.LeagueMember) error {
	return db.Omit(clause.Associations).Create(member).Error
}

func IsLeagueMember(db *gorm.DB, leagueID, userID string) (bool, error) {
	var count int64
	err := db.Model(&models.LeagueMember{}).
		Where("league_id = ? AND user_id = ?", leagueID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetLeagueMembers returns members in join order, which is the order the
// leaderboard keeps for tied scores.
func GetLeagueMembers(db *gorm.DB, leagueID string) ([]models.LeagueMember, error) {
	var members []models.LeagueMember
	if err := db.Preload("User").
		Where("league_id = ?", leagueID).
		Order("joined_at asc, id asc").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// Round CRUD
func CreateRound(db *gorm.DB, round *models.Round) error {
	return db.Omit(clause.Associations).Create(round).Error
}

func GetRound(db *gorm.DB, id string) (*models.Round, error) {
	var round models.Round
	if err := db.Preload("League").Preload("League.Admin").Where("id = ?", id).First(&round).Error; err != nil {
		return nil, err
	}
	return &round, nil
}

func GetRoundsByLeague(db *gorm.DB, leagueID string) ([]models.Round, error) {
	var rounds []models.Round
	if err := db.Where("league_id = ?", leagueID).Order("round_number desc").Find(&rounds).Error; err != nil {
		return nil, err
	}
	return rounds, nil
}

// GetLastRoundNumber returns the highest round number in the league, or 0.
func GetLastRoundNumber(db *gorm.DB, leagueID string) (int, error) {
	var last int
	err := db.Model(&models.Round{}).
		Select("COALESCE(MAX(round_number), 0)").
		Where("league_id = ?", leagueID).
		Scan(&last).Error
	return last, err
}

// AdvanceRoundStatus moves the round from one status to another only if it is
// still in the expected status, and reports whether it did.
func AdvanceRoundStatus(db *gorm.DB, id string, from, to models.RoundStatus) (bool, error) {
	result := db.Model(&models.Round{}).Where("id = ? AND status = ?", id, from).Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func UpdateRoundPlaylist(db *gorm.DB, id, playlistID, playlistURL string) error {
	return db.Model(&models.Round{}).Where("id = ?", id).Updates(map[string]interface{}{
		"playlist_id":  playlistID,
		"playlist_url": playlistURL,
	}).Error
}

// Submission CRUD
func GetSubmission(db *gorm.DB, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubmissionForUpdate reads a submission and, on databases with row locks,
// holds the row until the surrounding transaction ends.
func GetSubmissionForUpdate(tx *gorm.DB, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func GetSubmissionByRoundAndUser(db *gorm.DB, roundID, userID string) (*models.Submission, error) {
	var sub models.Submission
	if err := db.Where("round_id = ? AND user_id = ?", roundID, userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func GetSubmissionsByRound(db *gorm.DB, roundID string) ([]models.Submission, error) {
	var subs []models.Submission
	if err := db.Preload("User").
		Where("round_id = ?", roundID).
		Order("created_at asc, id asc").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// UpsertSubmission inserts the submission or, when the member already has one
// for the round, overwrites its track fields. Cached points are left alone.
func UpsertSubmission(db *gorm.DB, sub *models.Submission) error {
	return db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"track_id", "track_name", "track_artist", "track_artwork_url", "track_preview_url", "updated_at",
		}),
	}).Create(sub).Error
}

func UpdateSubmissionTotal(db *gorm.DB, id string, total int) error {
	return db.Model(&models.Submission{}).Where("id = ?", id).Update("total_points", total).Error
}

// SeasonRow is one submission's contribution to a league season.
type SeasonRow struct {
	UserID      string
	RoundID     string
	Status      models.RoundStatus
	TotalPoints int
}

// GetSeasonRows returns every submission of a completed round in the league,
// in round then submission order.
func GetSeasonRows(db *gorm.DB, leagueID string) ([]SeasonRow, error) {
	var rows []SeasonRow
	err := db.Table("submissions").
		Select("submissions.user_id, submissions.round_id, rounds.status, submissions.total_points").
		Joins("join rounds on rounds.id = submissions.round_id").
		Where("rounds.league_id = ? AND rounds.status = ?", leagueID, models.StatusCompleted).
		Order("rounds.round_number asc, submissions.created_at asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Vote CRUD

// UpsertVote writes the voter's points for a submission, replacing any earlier
// points for the same (round, voter, submission).
func UpsertVote(db *gorm.DB, vote *models.Vote) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "user_id"}, {Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "updated_at"}),
	}).Create(vote).Error
}

func GetVotesBySubmission(db *gorm.DB, submissionID string) ([]models.Vote, error) {
	var votes []models.Vote
	if err := db.Where("submission_id = ?", submissionID).Order("created_at asc").Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

func GetVotesByRoundAndUser(db *gorm.DB, roundID, userID string) ([]models.Vote, error) {
	var votes []models.Vote
	if err := db.Where("round_id = ? AND user_id = ?", roundID, userID).Order("created_at asc").Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

func GetSubmissionIDsByRound(db *gorm.DB, roundID string) ([]string, error) {
	var ids []string
	if err := db.Model(&models.Submission{}).Where("round_id = ?", roundID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// IsNotFound reports whether err is gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a uniqueness violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
