// Package notify posts round phase announcements to league webhooks and
// mirrors them onto the live event feed.
package notify

import (
	"fmt"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/league"
)

const (
	colorGreen = 0x1db954
	colorGold  = 0xffd700
	footerText = "Music League"
)

var medals = []string{"🥇", "🥈", "🥉"}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// WebhookPayload is the body accepted by Discord webhooks.
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// relative renders t as a Discord relative timestamp.
func relative(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func themeLine(theme string) string {
	if theme == "" {
		return ""
	}
	return "**Theme:** " + theme
}

// Payload builds the webhook message for a round event.
func Payload(e league.RoundEvent) (WebhookPayload, error) {
	var embed Embed
	r := e.Round
	switch e.Kind {
	case league.EventRoundOpened:
		embed = Embed{
			Title:       fmt.Sprintf("🎵 Round %d Started!", r.RoundNumber),
			Description: themeLine(r.Theme),
			Color:       colorGreen,
			Fields: []EmbedField{
				{Name: "League", Value: e.League.Name, Inline: true},
				{Name: "Submissions Close", Value: relative(r.SubmissionEnd), Inline: true},
			},
		}
		if embed.Description == "" {
			embed.Description = fmt.Sprintf("Round %d is now open for submissions!", r.RoundNumber)
		}
	case league.EventVotingOpened:
		embed = Embed{
			Title:       fmt.Sprintf("🗳️ Voting for Round %d is Open!", r.RoundNumber),
			Description: themeLine(r.Theme),
			Color:       colorGreen,
			Fields: []EmbedField{
				{Name: "League", Value: e.League.Name, Inline: true},
				{Name: "Voting Closes", Value: relative(r.VotingEnd), Inline: true},
			},
		}
		if r.PlaylistURL != "" {
			embed.Fields = append(embed.Fields, EmbedField{Name: "Playlist", Value: "[Listen on Spotify](" + r.PlaylistURL + ")"})
		}
	case league.EventRoundCompleted:
		embed = Embed{
			Title:       fmt.Sprintf("🏁 Round %d Complete!", r.RoundNumber),
			Description: themeLine(r.Theme),
			Color:       colorGold,
			Fields:      []EmbedField{{Name: "League", Value: e.League.Name}},
		}
		for i, s := range e.Results {
			if i == len(medals) {
				break
			}
			embed.Fields = append(embed.Fields, EmbedField{
				Name:  medals[i] + " " + s.Track.Name,
				Value: fmt.Sprintf("%s - %d points\nSubmitted by %s", s.Track.Artist, s.TotalPoints, submitterName(s)),
			})
		}
	default:
		return WebhookPayload{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	embed.Footer = &EmbedFooter{Text: footerText}
	embed.Timestamp = e.At.UTC().Format(time.RFC3339)
	return WebhookPayload{Embeds: []Embed{embed}}, nil
}

func submitterName(s league.SubmissionView) string {
	switch {
	case s.Submitter == nil:
		return "someone"
	case s.Submitter.Nickname != "":
		return s.Submitter.Nickname
	default:
		return s.Submitter.Username
	}
}
