package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/auth"
	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/dbtest"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/notify"
	"github.com/ZJUSCT/MusicLeague/internal/pubsub"
	"github.com/ZJUSCT/MusicLeague/internal/spotify"
	"github.com/ZJUSCT/MusicLeague/internal/trackid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	trackA = "4cOdK2wGLETKBW3PvgPWqT"
	trackB = "7ouMYWpwJ422jRcDASZB7P"
)

type fakeCatalog struct {
	tracks map[string]models.Track
}

func (f *fakeCatalog) FindTrack(_ context.Context, input string) (*models.Track, error) {
	id, err := trackid.Extract(input)
	if err != nil {
		return nil, err
	}
	t, ok := f.tracks[id]
	if !ok {
		return nil, errors.New("catalog returned 503")
	}
	return &t, nil
}

func (f *fakeCatalog) OAuth() *oauth2.Config { return &oauth2.Config{} }

func (f *fakeCatalog) Me(context.Context, *oauth2.Token) (*spotify.Profile, error) {
	return nil, errors.New("not used")
}

type server struct {
	cfg    *config.Config
	db     *gorm.DB
	now    time.Time
	broker *pubsub.Broker
	router *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Auth.JWT.Secret = "test-secret"
	cfg.Auth.JWT.ExpireHours = 1
	cfg.Auth.Local.Enabled = true

	s := &server{
		cfg:    cfg,
		db:     dbtest.New(t),
		now:    time.Date(2026, time.June, 3, 12, 0, 0, 0, time.UTC),
		broker: pubsub.NewBroker(8),
	}
	svc := league.NewService(s.db,
		league.WithNotifier(notify.NewDispatcher(config.Notify{QueueSize: 4}, s.broker, nil)),
		league.WithClock(func() time.Time { return s.now }),
	)
	catalog := &fakeCatalog{tracks: map[string]models.Track{
		trackA: {ID: trackA, Name: "Around the World", Artist: "Daft Punk"},
		trackB: {ID: trackB, Name: "Windowlicker", Artist: "Aphex Twin"},
	}}
	s.router = NewUserRouter(cfg, s.db, svc, catalog, s.broker)
	return s
}

// user creates an account directly in storage and returns a bearer token for it.
func (s *server) user(t *testing.T, username string) (string, string) {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Username: username, Nickname: username}
	require.NoError(t, database.CreateUser(s.db, u))
	token, err := auth.GenerateJWT(u.ID, s.cfg.Auth.JWT.Secret, 1)
	require.NoError(t, err)
	return u.ID, token
}

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func roundBody() gin.H {
	return gin.H{
		"theme":            "Songs with robots",
		"submission_start": "2026-06-01T00:00:00Z",
		"submission_end":   "2026-06-05T00:00:00Z",
		"voting_start":     "2026-06-05T00:00:00Z",
		"voting_end":       "2026-06-10T00:00:00Z",
	}
}

// setupRound creates a league with an admin and two members and opens one
// round in it.
func (s *server) setupRound(t *testing.T) (adminToken, aliceToken, bobToken, roundID string) {
	t.Helper()
	_, adminToken = s.user(t, "admin")
	_, aliceToken = s.user(t, "alice")
	_, bobToken = s.user(t, "bob")

	code, env := s.do(t, http.MethodPost, "/leagues", adminToken, gin.H{"name": "Office League", "slug": "office"})
	require.Equal(t, http.StatusOK, code, env.Message)
	for _, tok := range []string{aliceToken, bobToken} {
		code, env = s.do(t, http.MethodPost, "/leagues/office/join", tok, nil)
		require.Equal(t, http.StatusOK, code, env.Message)
	}

	code, env = s.do(t, http.MethodPost, "/leagues/office/rounds", adminToken, roundBody())
	require.Equal(t, http.StatusOK, code, env.Message)
	var result league.RoundResult
	decode(t, env, &result)
	require.Equal(t, 1, result.Round.RoundNumber)
	return adminToken, aliceToken, bobToken, result.Round.ID
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodGet, "/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/user/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLocalRegisterAndLogin(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodPost, "/auth/local/register", "", gin.H{"username": "carol", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodPost, "/auth/local/register", "", gin.H{"username": "carol", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, env.Message, "already taken")

	code, env = s.do(t, http.MethodPost, "/auth/local/register", "", gin.H{"username": "dave", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "at least 8 characters")

	code, _ = s.do(t, http.MethodPost, "/auth/local/login", "", gin.H{"username": "carol", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, code)

	_, _ = s.user(t, "spotify-only")
	code, env = s.do(t, http.MethodPost, "/auth/local/login", "", gin.H{"username": "spotify-only", "password": "anything-at-all"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, env.Message, "Spotify login")

	code, env = s.do(t, http.MethodPost, "/auth/local/login", "", gin.H{"username": "carol", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, env, &login)

	code, env = s.do(t, http.MethodGet, "/user/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var profile struct {
		User          models.User `json:"user"`
		SpotifyLinked bool        `json:"spotify_linked"`
	}
	decode(t, env, &profile)
	assert.Equal(t, "carol", profile.User.Username)
	assert.Equal(t, "carol", profile.User.Nickname)
	assert.False(t, profile.SpotifyLinked)
}

func TestAuthStatus(t *testing.T) {
	s := newServer(t)
	code, env := s.do(t, http.MethodGet, "/auth/status", "", nil)
	require.Equal(t, http.StatusOK, code)
	var status map[string]bool
	decode(t, env, &status)
	assert.True(t, status["local_auth_enabled"])
	assert.False(t, status["spotify_enabled"])
}

func TestCreateLeagueErrors(t *testing.T) {
	s := newServer(t)
	_, token := s.user(t, "admin")

	code, _ := s.do(t, http.MethodPost, "/leagues", token, gin.H{"name": "League", "slug": "Bad Slug!"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/leagues", token, gin.H{"name": "League", "slug": "taken"})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/leagues", token, gin.H{"name": "Other", "slug": "taken"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/leagues/taken/join", token, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodGet, "/leagues/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOnlyAdminManagesRounds(t *testing.T) {
	s := newServer(t)
	_, aliceToken, _, roundID := s.setupRound(t)

	code, _ := s.do(t, http.MethodPost, "/leagues/office/rounds", aliceToken, roundBody())
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, "/rounds/"+roundID+"/status", aliceToken, gin.H{"status": "VOTING"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCreateRoundRejectsBadWindow(t *testing.T) {
	s := newServer(t)
	adminToken, _, _, _ := s.setupRound(t)

	body := roundBody()
	body["voting_start"] = "2026-06-04T00:00:00Z"
	code, env := s.do(t, http.MethodPost, "/leagues/office/rounds", adminToken, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "invalid round window")
}

func TestRoundFlowOverHTTP(t *testing.T) {
	s := newServer(t)
	adminToken, aliceToken, bobToken, roundID := s.setupRound(t)
	rounds := "/rounds/" + roundID

	code, env := s.do(t, http.MethodPost, rounds+"/submissions", aliceToken, gin.H{"track": "https://open.spotify.com/track/" + trackA + "?si=abc"})
	require.Equal(t, http.StatusOK, code, env.Message)
	code, env = s.do(t, http.MethodPost, rounds+"/submissions", bobToken, gin.H{"track": "spotify:track:" + trackB})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, rounds+"/submissions/mine", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	var mine models.Submission
	decode(t, env, &mine)
	assert.Equal(t, trackA, mine.Track.ID)

	// submitter identity stays hidden while the round is open
	code, env = s.do(t, http.MethodGet, rounds+"/submissions", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	var views []league.SubmissionView
	decode(t, env, &views)
	require.Len(t, views, 2)
	var bobSubmission string
	for _, v := range views {
		assert.Nil(t, v.Submitter)
		if v.Track.ID == trackB {
			bobSubmission = v.ID
		}
	}
	require.NotEmpty(t, bobSubmission)

	// voting is closed during submissions
	code, _ = s.do(t, http.MethodPost, rounds+"/votes", aliceToken, gin.H{"submission_id": bobSubmission, "points": 3})
	assert.Equal(t, http.StatusForbidden, code)

	s.now = time.Date(2026, time.June, 6, 0, 0, 0, 0, time.UTC)
	code, env = s.do(t, http.MethodPost, rounds+"/status", adminToken, gin.H{"status": "voting"})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = s.do(t, http.MethodPost, rounds+"/submissions", aliceToken, gin.H{"track": trackB})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, rounds+"/votes", aliceToken, gin.H{"submission_id": bobSubmission, "points": 9})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, rounds+"/votes", bobToken, gin.H{"submission_id": bobSubmission, "points": 3})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPost, rounds+"/votes", aliceToken, gin.H{"submission_id": "nope", "points": 3})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPost, rounds+"/votes", aliceToken, gin.H{"points": 3})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, rounds+"/votes", aliceToken, gin.H{"submission_id": bobSubmission, "points": 4})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, rounds+"/votes/mine", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	var votes []models.Vote
	decode(t, env, &votes)
	require.Len(t, votes, 1)
	assert.Equal(t, 4, votes[0].Points)

	code, env = s.do(t, http.MethodPost, rounds+"/finalize", adminToken, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, rounds, aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Round       models.Round            `json:"round"`
		League      models.League           `json:"league"`
		Submissions []league.SubmissionView `json:"submissions"`
	}
	decode(t, env, &detail)
	assert.Equal(t, models.StatusCompleted, detail.Round.Status)
	assert.Equal(t, "office", detail.League.Slug)
	for _, v := range detail.Submissions {
		require.NotNil(t, v.Submitter)
	}

	code, env = s.do(t, http.MethodGet, "/leagues/office/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, code)
	var standings []league.Standing
	decode(t, env, &standings)
	require.Len(t, standings, 3)
	assert.Equal(t, "bob", standings[0].Username)
	assert.Equal(t, 4, standings[0].TotalScore)

	code, _ = s.do(t, http.MethodPost, rounds+"/finalize", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLookupTrack(t *testing.T) {
	s := newServer(t)
	_, token := s.user(t, "alice")

	code, env := s.do(t, http.MethodGet, "/tracks/lookup?q=spotify:track:"+trackA, token, nil)
	require.Equal(t, http.StatusOK, code)
	var track models.Track
	decode(t, env, &track)
	assert.Equal(t, "Daft Punk", track.Artist)

	code, _ = s.do(t, http.MethodGet, "/tracks/lookup?q=never+gonna+give", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/tracks/lookup?q=0VjIjW4GlUZAMYd2vXMi3b", token, nil)
	assert.Equal(t, http.StatusBadGateway, code)

	code, _ = s.do(t, http.MethodGet, "/tracks/lookup", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMyLeagues(t *testing.T) {
	s := newServer(t)
	_, aliceToken, _, _ := s.setupRound(t)
	_, loner := s.user(t, "loner")

	code, env := s.do(t, http.MethodGet, "/user/leagues", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	var leagues []models.League
	decode(t, env, &leagues)
	require.Len(t, leagues, 1)
	assert.Equal(t, "office", leagues[0].Slug)

	code, env = s.do(t, http.MethodGet, "/user/leagues", loner, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, env, &leagues)
	assert.Empty(t, leagues)
}

func TestLeagueEventsWebsocket(t *testing.T) {
	s := newServer(t)
	_, _, _, _ = s.setupRound(t)

	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/leagues/office/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg pubsub.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, string(league.EventRoundOpened), msg.Stream)

	var event notify.FeedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, 1, event.RoundNumber)
	assert.Equal(t, "Songs with robots", event.Theme)
}
