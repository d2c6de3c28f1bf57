package cli

import (
	"context"
	"io"
	"os"

	"github.com/rileyhilliard/sgebot/internal/config"
	"github.com/rileyhilliard/sgebot/internal/logger"
	"github.com/rileyhilliard/sgebot/internal/notify"
	"github.com/rileyhilliard/sgebot/internal/remote"
	"github.com/rileyhilliard/sgebot/internal/report"
	"github.com/rileyhilliard/sgebot/internal/store"
	"github.com/rileyhilliard/sgebot/internal/ui"
	"github.com/rileyhilliard/sgebot/pkg/sshutil"
)

func runReport(ctx context.Context, cfg *config.Config, out io.Writer) error {
	r, err := newReporter(cfg, out)
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// newReporter wires the production collaborators from cfg.
func newReporter(cfg *config.Config, out io.Writer) (*report.Reporter, error) {
	gateway := &sshutil.Gateway{
		Gateway: cfg.SSH.Gateway,
		Machine: cfg.SSH.Machine,
		Options: sshutil.DialOptions{
			User:          cfg.SSH.User,
			Port:          cfg.SSH.Port,
			Timeout:       cfg.SSH.Timeout,
			StrictHostKey: cfg.SSH.StrictHostKey,
		},
		TTYWidth: cfg.SSH.TTYWidth,
	}

	runner, err := remote.NewRunner(gateway, cfg.SSH.Prompt, cfg.SSH.Timeout, logger.NewEnvLogger("[remote]"))
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	poster := notify.NewSlackPoster(notify.SlackOptions{
		Token:           cfg.Slack.Token,
		Channel:         cfg.Slack.Channel,
		Username:        cfg.Slack.Username,
		IconEmoji:       cfg.Slack.IconEmoji,
		WebhookURL:      cfg.Slack.WebhookURL,
		WebhookUsername: notify.WebhookUsername(hostname),
	})
	dispatch := notify.NewDispatcher(poster, store.NewFileStore(cfg.Cache.Dir), logger.NewEnvLogger("[notify]"))

	return report.New(runner, dispatch, ui.NewPhaseDisplay(out), report.Options{
		Commands:     report.Commands{Bin: cfg.SGE.Bin},
		User:         cfg.SSH.User,
		Machine:      cfg.SSH.Machine,
		ExcludeHosts: cfg.SGE.ExcludeHosts,
	}, logger.NewEnvLogger("[report]")), nil
}
