// Package notify posts reports to Slack and suppresses reports that did
// not change since the last run.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/rileyhilliard/sgebot/internal/errors"
)

// Poster is the chat API used by the reports.
type Poster interface {
	// PostLab posts to the lab channel as the bot. A non-empty threadTS
	// posts as a reply in that thread. It returns the new message's
	// timestamp, which can be used as a threadTS later.
	PostLab(ctx context.Context, text, threadTS string) (string, error)

	// PostWebhook posts through the incoming webhook.
	PostWebhook(ctx context.Context, text string) error
}

// SlackOptions configures a SlackPoster.
type SlackOptions struct {
	Token     string
	Channel   string
	Username  string
	IconEmoji string

	WebhookURL      string
	WebhookUsername string

	// APIURL overrides the Web API endpoint (tests).
	APIURL string
	// HTTPClient is used for both the Web API and the webhook.
	HTTPClient *http.Client
}

// WebhookUsername is the name webhook posts appear under.
func WebhookUsername(hostname string) string {
	return fmt.Sprintf("stat bot (%s)", hostname)
}

// SlackPoster posts through slack-go.
type SlackPoster struct {
	api  *slack.Client
	opts SlackOptions
}

// NewSlackPoster creates a poster from opts.
func NewSlackPoster(opts SlackOptions) *SlackPoster {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	clientOpts := []slack.Option{slack.OptionHTTPClient(opts.HTTPClient)}
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(opts.APIURL))
	}

	return &SlackPoster{
		api:  slack.New(opts.Token, clientOpts...),
		opts: opts,
	}
}

func (p *SlackPoster) PostLab(ctx context.Context, text, threadTS string) (string, error) {
	msgOpts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionUsername(p.opts.Username),
		slack.MsgOptionIconEmoji(p.opts.IconEmoji),
	}
	if threadTS != "" {
		msgOpts = append(msgOpts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := p.api.PostMessageContext(ctx, p.opts.Channel, msgOpts...)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrNotify,
			"Failed to post to the lab channel",
			"Check LAB_TOKEN and that the bot is a member of LAB_CHANNEL.")
	}
	return ts, nil
}

func (p *SlackPoster) PostWebhook(ctx context.Context, text string) error {
	msg := &slack.WebhookMessage{
		Text:     text,
		Username: p.opts.WebhookUsername,
		// "full" makes Slack link @names in the text.
		Parse: "full",
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, p.opts.WebhookURL, p.opts.HTTPClient, msg); err != nil {
		return errors.WrapWithCode(err, errors.ErrNotify,
			"Failed to post through the webhook",
			"Check WEB_HOOK_URL.")
	}
	return nil
}
