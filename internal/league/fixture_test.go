package league_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/dbtest"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakePlaylists struct {
	mu        sync.Mutex
	createErr error
	addErr    error
	created   []string
	added     map[string][]string
}

func (p *fakePlaylists) CreatePlaylist(_ context.Context, l *models.League, r *models.Round) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", "", p.createErr
	}
	id := fmt.Sprintf("pl-%s-%d", l.Slug, r.RoundNumber)
	p.created = append(p.created, id)
	return id, "https://open.spotify.com/playlist/" + id, nil
}

func (p *fakePlaylists) AddTracks(_ context.Context, _ *models.League, r *models.Round, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addErr != nil {
		return p.addErr
	}
	if p.added == nil {
		p.added = make(map[string][]string)
	}
	p.added[r.PlaylistID] = append(p.added[r.PlaylistID], ids...)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []league.RoundEvent
}

func (n *recordingNotifier) Notify(e league.RoundEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) kinds() []league.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]league.EventKind, len(n.events))
	for i, e := range n.events {
		kinds[i] = e.Kind
	}
	return kinds
}

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	clock     *testClock
	playlists *fakePlaylists
	notifier  *recordingNotifier
	svc       *league.Service
	faker     *gofakeit.Faker
	users     int
}

var june1 = time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time { return june1.AddDate(0, 0, d-1) }

// juneWindow is submissions Jun 1 to Jun 5, voting Jun 5 to Jun 10.
func juneWindow() league.Window {
	return league.Window{
		SubmissionStart: day(1),
		SubmissionEnd:   day(5),
		VotingStart:     day(5),
		VotingEnd:       day(10),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.New(t))
}

// newFixtureOn builds the fixture over db. Concurrency tests pass
// dbtest.NewFile so they run with the server's pool and locking settings.
func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		db:        db,
		clock:     &testClock{t: day(3)},
		playlists: &fakePlaylists{},
		notifier:  &recordingNotifier{},
		faker:     gofakeit.New(42),
	}
	f.svc = league.NewService(f.db,
		league.WithPlaylists(f.playlists),
		league.WithNotifier(f.notifier),
		league.WithClock(f.clock.Now),
	)
	return f
}

func (f *fixture) user(t *testing.T) *models.User {
	t.Helper()
	f.users++
	u := &models.User{
		ID:       uuid.NewString(),
		Username: fmt.Sprintf("%s%d", f.faker.Username(), f.users),
		Nickname: f.faker.Name(),
	}
	require.NoError(t, database.CreateUser(f.db, u))
	return u
}

// league creates a league administered by a fresh user and enrolls n other
// members, returned in join order.
func (f *fixture) league(t *testing.T, n int) (*models.League, *models.User, []*models.User) {
	t.Helper()
	admin := f.user(t)
	slug := fmt.Sprintf("league-%d", f.users)
	l, err := f.svc.CreateLeague(f.ctx, admin.ID, f.faker.Company(), slug, "")
	require.NoError(t, err)

	members := make([]*models.User, n)
	for i := range members {
		members[i] = f.user(t)
		_, err := f.svc.JoinLeague(f.ctx, members[i].ID, slug)
		require.NoError(t, err)
	}
	return l, admin, members
}

func (f *fixture) round(t *testing.T, l *models.League, admin *models.User) *models.Round {
	t.Helper()
	res, err := f.svc.CreateRound(f.ctx, l.ID, admin.ID, league.NewRound{Theme: f.faker.Word(), Window: juneWindow()})
	require.NoError(t, err)
	return res.Round
}

func (f *fixture) submit(t *testing.T, round *models.Round, u *models.User, trackID string) *models.Submission {
	t.Helper()
	res, err := f.svc.Submit(f.ctx, round.ID, u.ID, models.Track{ID: trackID, Name: f.faker.SongName(), Artist: f.faker.SongArtist()})
	require.NoError(t, err)
	return res.Submission
}

func (f *fixture) openVoting(t *testing.T, round *models.Round, admin *models.User) {
	t.Helper()
	f.clock.Set(day(5).Add(time.Hour))
	_, err := f.svc.AdvanceStatus(f.ctx, round.ID, admin.ID, models.StatusVoting)
	require.NoError(t, err)
}

const (
	trackX = "4cOdK2wGLETKBW3PvgPWqT"
	trackY = "7ouMYWpwJ422jRcDASZB7P"
	trackZ = "0VjIjW4GlUZAMYd2vXMi3b"
)
