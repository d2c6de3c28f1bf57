package config

import (
	"github.com/rileyhilliard/sgebot/internal/errors"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that feed them.
var envBindings = map[string]string{
	"ssh.user":            "SSH_USER",
	"ssh.gateway":         "SSH_GATEWAY_HOST",
	"ssh.machine":         "SSH_MACHINE",
	"ssh.port":            "SSH_PORT",
	"ssh.prompt":          "SSH_PROMPT",
	"ssh.timeout":         "SSH_TIMEOUT",
	"ssh.tty_width":       "SSH_TTY_WIDTH",
	"ssh.strict_host_key": "SSH_STRICT_HOST_KEY",
	"slack.token":         "LAB_TOKEN",
	"slack.channel":       "LAB_CHANNEL",
	"slack.webhook_url":   "WEB_HOOK_URL",
	"slack.username":      "LAB_BOT_NAME",
	"slack.icon_emoji":    "LAB_BOT_EMOJI",
	"sge.bin":             "SGE_BIN",
	"sge.exclude_hosts":   "SGE_EXCLUDE_HOSTS",
	"cache.dir":           "SGEBOT_CACHE_DIR",
}

// EnvFor returns the environment variable bound to a config key.
func EnvFor(key string) string {
	return envBindings[key]
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to bind "+env,
				"This is a bug in sgebot.")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid configuration value",
			"Check the SSH_*, LAB_* and SGE_* environment variables.")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.prompt", DefaultPrompt)
	v.SetDefault("ssh.timeout", "10s")
	v.SetDefault("ssh.tty_width", 250)
	v.SetDefault("ssh.strict_host_key", false)
	v.SetDefault("slack.username", "mirai")
	v.SetDefault("slack.icon_emoji", ":ssh-mirai:")
	v.SetDefault("sge.bin", "/usr/sge/bin/linux-x64")
	v.SetDefault("sge.exclude_hosts", []string{"compute-3-1"})
	v.SetDefault("cache.dir", ".")
}
