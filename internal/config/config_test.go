package config

import (
	"testing"
	"time"

	"github.com/rileyhilliard/sgebot/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SSH_USER", "alice")
	t.Setenv("SSH_GATEWAY_HOST", "gw.example.ac.jp")
	t.Setenv("SSH_MACHINE", "mirai")
	t.Setenv("LAB_TOKEN", "xoxb-test")
	t.Setenv("LAB_CHANNEL", "C0123")
	t.Setenv("WEB_HOOK_URL", "https://hooks.slack.com/services/T/B/X")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.SSH.User)
	assert.Equal(t, "gw.example.ac.jp", cfg.SSH.Gateway)
	assert.Equal(t, "mirai", cfg.SSH.Machine)
	assert.Equal(t, 22, cfg.SSH.Port)
	assert.Equal(t, DefaultPrompt, cfg.SSH.Prompt)
	assert.Equal(t, 10*time.Second, cfg.SSH.Timeout)
	assert.Equal(t, 250, cfg.SSH.TTYWidth)
	assert.False(t, cfg.SSH.StrictHostKey)
	assert.Equal(t, "mirai", cfg.Slack.Username)
	assert.Equal(t, ":ssh-mirai:", cfg.Slack.IconEmoji)
	assert.Equal(t, "/usr/sge/bin/linux-x64", cfg.SGE.Bin)
	assert.Equal(t, []string{"compute-3-1"}, cfg.SGE.ExcludeHosts)
	assert.Equal(t, ".", cfg.Cache.Dir)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SSH_PORT", "2222")
	t.Setenv("SSH_TIMEOUT", "45s")
	t.Setenv("SSH_STRICT_HOST_KEY", "true")
	t.Setenv("SGE_BIN", "/opt/sge/bin/lx-amd64")
	t.Setenv("SGE_EXCLUDE_HOSTS", "compute-3-1,compute-4-2")
	t.Setenv("SGEBOT_CACHE_DIR", "/var/lib/sgebot")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2222, cfg.SSH.Port)
	assert.Equal(t, 45*time.Second, cfg.SSH.Timeout)
	assert.True(t, cfg.SSH.StrictHostKey)
	assert.Equal(t, "/opt/sge/bin/lx-amd64", cfg.SGE.Bin)
	assert.Equal(t, []string{"compute-3-1", "compute-4-2"}, cfg.SGE.ExcludeHosts)
	assert.Equal(t, "/var/lib/sgebot", cfg.Cache.Dir)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, env := range []string{"SSH_USER", "SSH_GATEWAY_HOST", "SSH_MACHINE", "LAB_TOKEN", "LAB_CHANNEL", "WEB_HOOK_URL"} {
		t.Run(env, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(env, "")

			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), env)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SSH: SSHConfig{
				User: "alice", Gateway: "gw", Machine: "mirai", Port: 22,
				Prompt: DefaultPrompt, Timeout: time.Second, TTYWidth: 250,
			},
			Slack: SlackConfig{Token: "t", Channel: "c", WebhookURL: "https://hooks"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad prompt", mutate: func(c *Config) { c.SSH.Prompt = "(" }, wantErr: "SSH_PROMPT"},
		{name: "zero timeout", mutate: func(c *Config) { c.SSH.Timeout = 0 }, wantErr: "SSH_TIMEOUT"},
		{name: "bad port", mutate: func(c *Config) { c.SSH.Port = 70000 }, wantErr: "SSH_PORT"},
		{name: "zero width", mutate: func(c *Config) { c.SSH.TTYWidth = 0 }, wantErr: "SSH_TTY_WIDTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{Slack: SlackConfig{Token: "xoxb-secret", WebhookURL: "https://hooks/secret", Channel: "C1"}}

	r := cfg.Redacted()

	assert.NotContains(t, r.Slack.Token, "secret")
	assert.NotContains(t, r.Slack.WebhookURL, "secret")
	assert.Equal(t, "C1", r.Slack.Channel)
	assert.Equal(t, "xoxb-secret", cfg.Slack.Token, "original must be untouched")
}
