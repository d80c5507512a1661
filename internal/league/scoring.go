package league

import (
	"sort"

	"github.com/ZJUSCT/MusicLeague/internal/database/models"
)

// TotalPoints is the sum of points over votes. No weighting is applied.
func TotalPoints(votes []models.Vote) int {
	total := 0
	for _, v := range votes {
		total += v.Points
	}
	return total
}

// RoundScore is one submission's cached total together with the status of
// the round it belongs to.
type RoundScore struct {
	UserID      string
	RoundStatus models.RoundStatus
	TotalPoints int
}

// SeasonScores sums totals per member over submissions from completed rounds.
// Members without a completed-round submission are absent from the map.
func SeasonScores(scores []RoundScore) map[string]int {
	season := make(map[string]int)
	for _, s := range scores {
		if s.RoundStatus != models.StatusCompleted {
			continue
		}
		season[s.UserID] += s.TotalPoints
	}
	return season
}

// Standing is one member's row on the season leaderboard.
type Standing struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Nickname   string `json:"nickname"`
	AvatarURL  string `json:"avatar_url"`
	TotalScore int    `json:"total_score"`
}

// RankStandings orders standings by score, highest first. Ties keep the
// order they were given in.
func RankStandings(standings []Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].TotalScore > standings[j].TotalScore
	})
}
