package remote

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rileyhilliard/sgebot/internal/config"
	"github.com/rileyhilliard/sgebot/internal/errors"
	"github.com/rileyhilliard/sgebot/internal/logger"
	sshtest "github.com/rileyhilliard/sgebot/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const qhostOut = `HOSTNAME                ARCH         NCPU  LOAD  MEMTOT  MEMUSE  SWAPTO  SWAPUS
-------------------------------------------------------------------------------
global                  -               -     -       -       -       -       -
compute-0-0             linux-x64       4  3.80    7.8G    1.2G    1.0G     0.0
`

func newTestRunner(t *testing.T, opener *sshtest.Opener, timeout time.Duration) *Runner {
	t.Helper()
	r, err := NewRunner(opener, config.DefaultPrompt, timeout, logger.Noop())
	require.NoError(t, err)
	return r
}

func TestRunner_Run(t *testing.T) {
	opener := &sshtest.Opener{Responses: map[string]string{"qhost": qhostOut}}
	r := newTestRunner(t, opener, time.Second)

	out, err := r.Run(context.Background(), "qhost")
	require.NoError(t, err)

	assert.Equal(t, qhostOut[:len(qhostOut)-1], out)
	require.Len(t, opener.Shells, 1)
	assert.Equal(t, []string{"", "qhost"}, opener.Shells[0].Sent())
	assert.True(t, opener.AllClosed())
}

func TestRunner_EmptyOutput(t *testing.T) {
	opener := &sshtest.Opener{Responses: map[string]string{"qstat -f | grep Eqw": ""}}
	r := newTestRunner(t, opener, time.Second)

	out, err := r.Run(context.Background(), "qstat -f | grep Eqw")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunner_OneSessionPerCommand(t *testing.T) {
	opener := &sshtest.Opener{Responses: map[string]string{"qstat": "a\n", "qhost": "b\n"}}
	r := newTestRunner(t, opener, time.Second)

	first, err := r.Run(context.Background(), "qstat")
	require.NoError(t, err)
	second, err := r.Run(context.Background(), "qhost")
	require.NoError(t, err)

	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
	assert.Len(t, opener.Shells, 2)
	assert.True(t, opener.AllClosed())
}

func TestRunner_TimeoutClosesShell(t *testing.T) {
	opener := &sshtest.Opener{
		Responses: map[string]string{},
		Silent:    map[string]bool{"qstat -f": true},
	}
	r := newTestRunner(t, opener, 50*time.Millisecond)

	_, err := r.Run(context.Background(), "qstat -f")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
	assert.True(t, opener.AllClosed())
}

func TestRunner_CallerDeadlineWins(t *testing.T) {
	opener := &sshtest.Opener{Silent: map[string]bool{"qstat": true}}
	r := newTestRunner(t, opener, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "qstat")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_OpenError(t *testing.T) {
	opener := &sshtest.Opener{OpenErr: errors.New(errors.ErrSSH, "gateway down", "")}
	r := newTestRunner(t, opener, time.Second)

	_, err := r.Run(context.Background(), "qstat")
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
}

func TestNewRunner_BadPrompt(t *testing.T) {
	_, err := NewRunner(&sshtest.Opener{}, "(", time.Second, nil)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestBetweenEchoAndPrompt(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{name: "plain", transcript: "qstat\nline1\nline2\n~ > ", want: "line1\nline2"},
		{name: "no output", transcript: "qstat\n~ > ", want: ""},
		{name: "stale prompt before echo", transcript: "\n~ > qstat\nline1\n~ > ", want: "line1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, betweenEchoAndPrompt(tt.transcript, "qstat"))
		})
	}
}

func ExampleRunner_Run() {
	opener := &sshtest.Opener{Responses: map[string]string{"hostname": "mirai\n"}}
	r, _ := NewRunner(opener, config.DefaultPrompt, time.Second, nil)

	out, _ := r.Run(context.Background(), "hostname")
	fmt.Println(out)
	// Output: mirai
}
