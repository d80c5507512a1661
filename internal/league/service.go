package league

import (
	"context"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Playlists mirrors rounds into the music provider. Both calls are best
// effort: a failure becomes a warning on the primary result.
type Playlists interface {
	CreatePlaylist(ctx context.Context, league *models.League, round *models.Round) (playlistID, playlistURL string, err error)
	AddTracks(ctx context.Context, league *models.League, round *models.Round, trackIDs []string) error
}

// Notifier receives round phase events. Implementations must not block.
type Notifier interface {
	Notify(event RoundEvent)
}

type EventKind string

const (
	EventRoundOpened    EventKind = "round_opened"
	EventVotingOpened   EventKind = "voting_opened"
	EventRoundCompleted EventKind = "round_completed"
)

type RoundEvent struct {
	Kind    EventKind
	League  models.League
	Round   models.Round
	At      time.Time
	Results []SubmissionView // EventRoundCompleted only, highest total first
}

// Metrics is implemented by internal/metrics.
type Metrics interface {
	RoundCreated()
	RoundAdvanced(to models.RoundStatus)
	SubmissionRecorded(updated bool)
	VoteCast()
	SideEffectFailed(kind string)
}

type NoOpMetrics struct{}

func (NoOpMetrics) RoundCreated() {}
func (NoOpMetrics) RoundAdvanced(models.RoundStatus) {}
func (NoOpMetrics) SubmissionRecorded(bool) {}
func (NoOpMetrics) VoteCast() {}
func (NoOpMetrics) SideEffectFailed(string) {}

type noopNotifier struct{}

func (noopNotifier) Notify(RoundEvent) {}

// Service implements league, round, submission and vote operations over an
// explicitly supplied database handle.
type Service struct {
	db        *gorm.DB
	playlists Playlists
	notifier  Notifier
	metrics   Metrics
	now       func() time.Time
}

type Option func(*Service)

func WithPlaylists(p Playlists) Option { return func(s *Service) { s.playlists = p } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock replaces time.Now for time-window checks.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:       db,
		notifier: noopNotifier{},
		metrics:  NoOpMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// warn records a failed side effect and returns the message for the caller.
func (s *Service) warn(kind string, err error, fields ...interface{}) string {
	s.metrics.SideEffectFailed(kind)
	zap.S().Warnw(kind+" failed", append(fields, "error", err)...)
	return kind + " failed: " + err.Error()
}
