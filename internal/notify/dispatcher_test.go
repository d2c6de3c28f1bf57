package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rileyhilliard/sgebot/internal/logger"
	notifytest "github.com/rileyhilliard/sgebot/internal/notify/testing"
	"github.com/rileyhilliard/sgebot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher() (*Dispatcher, *notifytest.FakePoster, *store.MemStore, *logger.BufferLogger) {
	poster := notifytest.NewFakePoster()
	st := store.NewMemStore()
	log := logger.NewBufferLogger()
	return NewDispatcher(poster, st, log), poster, st, log
}

func TestDispatcher_LabIfChanged_SuppressesRepeats(t *testing.T) {
	d, poster, _, log := newDispatcher()
	ctx := context.Background()

	posted, err := d.LabIfChanged(ctx, store.KeyStatus, "```\nqstat\n```", "1.0")
	require.NoError(t, err)
	assert.True(t, posted, "first run has no cache and always posts")
	require.Len(t, poster.Posts(), 1)
	assert.Equal(t, "1.0", poster.Posts()[0].ThreadTS)

	poster.Reset()
	posted, err = d.LabIfChanged(ctx, store.KeyStatus, "```\nqstat\n```", "2.0")
	require.NoError(t, err)
	assert.False(t, posted)
	assert.Empty(t, poster.Posts(), "identical text makes no chat calls")
	assert.True(t, log.Contains("unchanged"))

	posted, err = d.LabIfChanged(ctx, store.KeyStatus, "```\nqstat.\n```", "3.0")
	require.NoError(t, err)
	assert.True(t, posted)
	assert.Len(t, poster.Posts(), 1, "one differing byte makes exactly one call")
}

func TestDispatcher_WebhookIfChanged(t *testing.T) {
	d, poster, st, _ := newDispatcher()
	ctx := context.Background()

	require.NoError(t, st.Put(store.KeyMyStatus, "old"))

	posted, err := d.WebhookIfChanged(ctx, store.KeyMyStatus, "new")
	require.NoError(t, err)
	assert.True(t, posted)
	assert.Equal(t, []notifytest.Post{{Webhook: true, Text: "new"}}, poster.Posts())

	text, _, err := st.Get(store.KeyMyStatus)
	require.NoError(t, err)
	assert.Equal(t, "new", text)

	posted, err = d.WebhookIfChanged(ctx, store.KeyMyStatus, "new")
	require.NoError(t, err)
	assert.False(t, posted)
	assert.Len(t, poster.Posts(), 1)
}

func TestDispatcher_KeysAreIndependent(t *testing.T) {
	d, poster, _, _ := newDispatcher()
	ctx := context.Background()

	_, err := d.LabIfChanged(ctx, store.KeyStatus, "same", "")
	require.NoError(t, err)
	_, err = d.WebhookIfChanged(ctx, store.KeyMyStatus, "same")
	require.NoError(t, err)

	assert.Len(t, poster.Posts(), 2)
}

func TestDispatcher_StoresBeforePosting(t *testing.T) {
	d, poster, st, _ := newDispatcher()
	poster.Err = errors.New("slack down")

	_, err := d.LabIfChanged(context.Background(), store.KeyStatus, "text", "")
	require.Error(t, err)

	text, ok, err := st.Get(store.KeyStatus)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "text", text)
}

func TestDispatcher_Alert(t *testing.T) {
	d, poster, _, _ := newDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Alert(ctx, ""))
	assert.Empty(t, poster.Posts(), "no alerts means no message")

	require.NoError(t, d.Alert(ctx, "@alice\n:warning: x\n"))
	require.NoError(t, d.Alert(ctx, "@alice\n:warning: x\n"))
	assert.Len(t, poster.Posts(), 2, "alerts are never deduplicated")
}

func TestDispatcher_Lab(t *testing.T) {
	d, poster, _, _ := newDispatcher()

	ts, err := d.Lab(context.Background(), "grid", "")
	require.NoError(t, err)
	assert.NotEmpty(t, ts)
	assert.Equal(t, "grid", poster.Posts()[0].Text)
}

type brokenStore struct{}

func (brokenStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (brokenStore) Put(string, string) error         { return nil }

func TestDispatcher_StoreError(t *testing.T) {
	poster := notifytest.NewFakePoster()
	d := NewDispatcher(poster, brokenStore{}, nil)

	_, err := d.WebhookIfChanged(context.Background(), store.KeyMyStatus, "x")
	assert.ErrorContains(t, err, "disk gone")
	assert.Empty(t, poster.Posts())
}
