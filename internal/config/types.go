package config

import "time"

// DefaultPrompt matches an idle login shell on the cluster head node,
// optionally prefixed by an activated environment name: "(base) ~ > ".
const DefaultPrompt = `(\([\-0-9A-z_]+\)\s)?~\s>\s`

// Config is the complete runtime configuration, read from the environment.
type Config struct {
	SSH   SSHConfig   `yaml:"ssh" mapstructure:"ssh"`
	Slack SlackConfig `yaml:"slack" mapstructure:"slack"`
	SGE   SGEConfig   `yaml:"sge" mapstructure:"sge"`
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// SSHConfig describes how to reach the cluster through the gateway.
type SSHConfig struct {
	// User logs in on both the gateway and the machine.
	User string `yaml:"user" mapstructure:"user"`

	// Gateway is the jump host; Machine is reached from it on Port.
	// Both may be aliases from ~/.ssh/config.
	Gateway string `yaml:"gateway" mapstructure:"gateway"`
	Machine string `yaml:"machine" mapstructure:"machine"`
	Port    int    `yaml:"port" mapstructure:"port"`

	// Prompt is the regexp that marks the remote shell as ready for input.
	Prompt string `yaml:"prompt" mapstructure:"prompt"`

	// Timeout bounds each wait for the prompt.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// TTYWidth keeps qstat from wrapping long queue names.
	TTYWidth int `yaml:"tty_width" mapstructure:"tty_width"`

	StrictHostKey bool `yaml:"strict_host_key" mapstructure:"strict_host_key"`
}

// SlackConfig holds the chat identities.
type SlackConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	Channel    string `yaml:"channel" mapstructure:"channel"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Username   string `yaml:"username" mapstructure:"username"`
	IconEmoji  string `yaml:"icon_emoji" mapstructure:"icon_emoji"`
}

// SGEConfig locates the scheduler tools on the remote machine.
type SGEConfig struct {
	Bin string `yaml:"bin" mapstructure:"bin"`

	// ExcludeHosts are dropped from the personal update.
	ExcludeHosts []string `yaml:"exclude_hosts" mapstructure:"exclude_hosts"`
}

// CacheConfig locates the last-seen message files.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	out.Slack.Token = redact(c.Slack.Token)
	out.Slack.WebhookURL = redact(c.Slack.WebhookURL)
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
