package status

import (
	"os"
	"testing"
	"time"

	"github.com/rileyhilliard/sgebot/internal/sge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGrid_FullNodeOwnedByOneUser(t *testing.T) {
	listing := "---------------------------------------------------------------------------------\n" +
		"gpu.q@compute-1-1   0/4/4   3.80   -\n" +
		"   4101 0.55500 train.sh   alice        r     01/08/2024 10:00:00     4\n"

	nodes, err := sge.ParseQueueListing(listing)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	now := time.Date(2024, 1, 8, 10, 2, 0, 0, sge.SchedulerZone)
	grid := BuildGrid(nodes, now)

	require.Len(t, grid.Groups, 1)
	assert.Equal(t, []string{":alice:"}, grid.Groups[0].Reserved)
	assert.Equal(t, []string{FullThrottle}, grid.Groups[0].Actual)
	assert.Equal(t, []string{":2m:"}, grid.Groups[0].Time)
}

func TestBuildGrid_Listing(t *testing.T) {
	data, err := os.ReadFile("../sge/testdata/qstat-f.txt")
	require.NoError(t, err)

	nodes, err := sge.ParseQueueListing(string(data))
	require.NoError(t, err)

	now := time.Date(2024, 1, 8, 13, 0, 0, 0, sge.SchedulerZone)
	grid := BuildGrid(nodes, now)

	want := "*all.q*\n" +
		":alice: :余裕: :ジョブなし: reserved\n" +
		":全力: :n2: :ジョブなし: actual\n" +
		":3h: :1h: :ジョブなし: time\n" +
		"*gpu.q*\n" +
		":ジョブなし: :ジョブなし: reserved\n" +
		":disconnected: :disconnected: actual\n" +
		":ジョブなし: :ジョブなし: time\n"
	assert.Equal(t, want, grid.String())
	assert.False(t, grid.Empty())
}

func TestBuildGrid_GroupsInFirstSeenOrder(t *testing.T) {
	nodes := []sge.QueueNode{
		{Queue: "b.q@compute-0-0", Total: 4},
		{Queue: "a.q@compute-0-1", Total: 4},
		{Queue: "b.q@compute-0-2", Total: 4},
	}

	grid := BuildGrid(nodes, time.Now())
	require.Len(t, grid.Groups, 2)
	assert.Equal(t, "b.q", grid.Groups[0].Group)
	assert.Len(t, grid.Groups[0].Reserved, 2)
	assert.Equal(t, "a.q", grid.Groups[1].Group)
}

func TestGrid_Empty(t *testing.T) {
	grid := BuildGrid(nil, time.Now())
	assert.True(t, grid.Empty())
	assert.Equal(t, "", grid.String())
}
