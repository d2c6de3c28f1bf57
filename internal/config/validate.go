package config

import (
	"fmt"
	"regexp"

	"github.com/rileyhilliard/sgebot/internal/errors"
)

// Validate checks that every required setting is present and usable.
func Validate(cfg *Config) error {
	required := []struct {
		key   string
		value string
	}{
		{"ssh.user", cfg.SSH.User},
		{"ssh.gateway", cfg.SSH.Gateway},
		{"ssh.machine", cfg.SSH.Machine},
		{"slack.token", cfg.Slack.Token},
		{"slack.channel", cfg.Slack.Channel},
		{"slack.webhook_url", cfg.Slack.WebhookURL},
	}
	for _, r := range required {
		if r.value == "" {
			env := EnvFor(r.key)
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s is not set", env),
				fmt.Sprintf("Export %s in the environment that runs sgebot (crontab, systemd unit).", env))
		}
	}

	if _, err := regexp.Compile(cfg.SSH.Prompt); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"SSH_PROMPT is not a valid regular expression",
			"Use Go RE2 syntax, e.g. `~\\s>\\s`.")
	}

	if cfg.SSH.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("SSH_TIMEOUT must be positive, got %s", cfg.SSH.Timeout),
			"Use a duration like 10s or 1m.")
	}

	if cfg.SSH.Port <= 0 || cfg.SSH.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("SSH_PORT out of range: %d", cfg.SSH.Port),
			"Use the SSH port of the machine behind the gateway, usually 22.")
	}

	if cfg.SSH.TTYWidth <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("SSH_TTY_WIDTH must be positive, got %d", cfg.SSH.TTYWidth),
			"Leave it unset to use 250 columns.")
	}

	return nil
}
