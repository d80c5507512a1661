package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/pubsub"
	"go.uber.org/zap"
)

// Recorder counts webhook outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	NotificationSent(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) NotificationSent(string) {}

// FeedEvent is what websocket clients receive for a round phase change.
// It never carries vote counts.
type FeedEvent struct {
	Kind        league.EventKind   `json:"kind"`
	LeagueID    string             `json:"league_id"`
	RoundID     string             `json:"round_id"`
	RoundNumber int                `json:"round_number"`
	Theme       string             `json:"theme"`
	Status      models.RoundStatus `json:"status"`
	PlaylistURL string             `json:"playlist_url,omitempty"`
	At          time.Time          `json:"at"`
}

// Dispatcher implements league.Notifier. Notify never blocks: events go onto
// a bounded queue drained by Run, and are dropped when the queue is full.
type Dispatcher struct {
	queue    chan league.RoundEvent
	client   *http.Client
	broker   *pubsub.Broker
	recorder Recorder
}

func NewDispatcher(cfg config.Notify, broker *pubsub.Broker, recorder Recorder) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Dispatcher{
		queue:    make(chan league.RoundEvent, cfg.QueueSize),
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		broker:   broker,
		recorder: recorder,
	}
}

func (d *Dispatcher) Notify(e league.RoundEvent) {
	if d.broker != nil {
		d.broker.Publish(pubsub.LeagueTopic(e.League.ID), pubsub.FormatMessage(string(e.Kind), feedEvent(e)))
	}
	if e.League.WebhookURL == "" {
		return
	}

	select {
	case d.queue <- e:
	default:
		d.recorder.NotificationSent("dropped")
		zap.S().Warnw("notification queue full, dropping event", "league", e.League.ID, "round", e.Round.ID, "kind", e.Kind)
	}
}

// Run delivers queued events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			if err := d.send(ctx, e); err != nil {
				d.recorder.NotificationSent("failed")
				zap.S().Warnw("webhook notification failed", "league", e.League.ID, "round", e.Round.ID, "kind", e.Kind, "error", err)
				continue
			}
			d.recorder.NotificationSent("sent")
			zap.S().Debugf("sent %s notification for round %s", e.Kind, e.Round.ID)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, e league.RoundEvent) error {
	payload, err := Payload(e)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.League.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

func feedEvent(e league.RoundEvent) FeedEvent {
	return FeedEvent{
		Kind:        e.Kind,
		LeagueID:    e.League.ID,
		RoundID:     e.Round.ID,
		RoundNumber: e.Round.RoundNumber,
		Theme:       e.Round.Theme,
		Status:      e.Round.Status,
		PlaylistURL: e.Round.PlaylistURL,
		At:          e.At,
	}
}
