package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// Announcer posts table-ready announcements to a staff Slack channel.
// Nil-safe: a nil Announcer logs the announcement and succeeds, which
// is the simulation mode for the ANNOUNCEMENT method.
type Announcer struct {
	api       *goslack.Client
	channelID string
	logger    *slog.Logger
}

// NewAnnouncer creates a staff-channel announcer.
// Returns nil if token or channel is empty.
func NewAnnouncer(token, channelID string) *Announcer {
	if token == "" || channelID == "" {
		return nil
	}
	return &Announcer{
		api:       goslack.New(token),
		channelID: channelID,
		logger:    slog.Default().With("component", "announcer"),
	}
}

// NewAnnouncerWithAPIURL creates an announcer that targets a custom API
// URL. Useful for testing with a mock server.
func NewAnnouncerWithAPIURL(token, channelID, apiURL string) *Announcer {
	return &Announcer{
		api:       goslack.New(token, goslack.OptionAPIURL(apiURL)),
		channelID: channelID,
		logger:    slog.Default().With("component", "announcer"),
	}
}

// Send posts the announcement to the staff channel.
// Fail-open: Slack errors are logged, never returned. Announcements
// always succeed locally; staff fall back to calling the name out loud.
func (a *Announcer) Send(ctx context.Context, msg Message) error {
	if a == nil {
		slog.Default().With("component", "announcer").Info("Simulated announcement (no Slack credentials configured)",
			"customer", msg.CustomerName,
			"body", msg.Body)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	text := fmt.Sprintf(":loudspeaker: %s", msg.Body)
	if _, _, err := a.api.PostMessageContext(ctx, a.channelID, goslack.MsgOptionText(text, false)); err != nil {
		a.logger.Error("Failed to post announcement",
			"customer", msg.CustomerName,
			"error", err)
	}
	return nil
}
