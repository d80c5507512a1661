package models

import (
	"time"

	"gorm.io/gorm"
)

type RoundStatus string

const (
	StatusSubmission RoundStatus = "SUBMISSION"
	StatusVoting     RoundStatus = "VOTING"
	StatusCompleted  RoundStatus = "COMPLETED"
)

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SpotifyID    *string `gorm:"uniqueIndex" json:"-"`
	Username     string  `gorm:"uniqueIndex" json:"username"`
	PasswordHash string  `json:"-"`
	Nickname     string  `json:"nickname"`
	AvatarURL    string  `json:"avatar_url"`

	// Spotify credentials used to refresh the access token for playlist calls.
	SpotifyAccessToken  string     `json:"-"`
	SpotifyRefreshToken string     `json:"-"`
	SpotifyTokenExpiry  *time.Time `json:"-"`
}

type League struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name       string `json:"name"`
	Slug       string `gorm:"uniqueIndex" json:"slug"`
	AdminID    string `gorm:"index" json:"admin_id"`
	Admin      User   `gorm:"foreignKey:AdminID" json:"admin"`
	WebhookURL string `json:"-"`

	Members []LeagueMember `gorm:"foreignKey:LeagueID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Rounds  []Round        `gorm:"foreignKey:LeagueID;constraint:OnDelete:CASCADE" json:"rounds,omitempty"`
}

type LeagueMember struct {
	ID       string    `gorm:"primaryKey" json:"id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	LeagueID string `gorm:"uniqueIndex:idx_league_member" json:"league_id"`
	UserID   string `gorm:"uniqueIndex:idx_league_member" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"user"`
}

type Round struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	LeagueID    string      `gorm:"uniqueIndex:idx_league_round_number" json:"league_id"`
	League      League      `gorm:"foreignKey:LeagueID" json:"-"`
	RoundNumber int         `gorm:"uniqueIndex:idx_league_round_number" json:"round_number"`
	Theme       string      `json:"theme"`
	Description string      `json:"description"`
	Status      RoundStatus `gorm:"index" json:"status"`

	SubmissionStart time.Time `json:"submission_start"`
	SubmissionEnd   time.Time `json:"submission_end"`
	VotingStart     time.Time `json:"voting_start"`
	VotingEnd       time.Time `json:"voting_end"`

	PlaylistID  string `json:"playlist_id"`
	PlaylistURL string `json:"playlist_url"`

	Submissions []Submission `gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE" json:"-"`
	Votes       []Vote       `gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE" json:"-"`
}

// Track is the catalog metadata carried by a submission.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	ArtworkURL string `json:"artwork_url"`
	PreviewURL string `json:"preview_url"`
}

type Submission struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	RoundID string `gorm:"uniqueIndex:idx_round_member" json:"round_id"`
	UserID  string `gorm:"uniqueIndex:idx_round_member" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"-"`

	Track       Track `gorm:"embedded;embeddedPrefix:track_" json:"track"`
	TotalPoints int   `json:"total_points"`

	Votes []Vote `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"-"`
}

type Vote struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	RoundID      string `gorm:"uniqueIndex:idx_round_voter_submission" json:"round_id"`
	UserID       string `gorm:"uniqueIndex:idx_round_voter_submission" json:"user_id"`
	SubmissionID string `gorm:"uniqueIndex:idx_round_voter_submission;index" json:"submission_id"`
	Points       int    `json:"points"`
}
