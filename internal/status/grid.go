package status

import (
	"strings"
	"time"

	"github.com/rileyhilliard/sgebot/internal/sge"
)

// GroupRow holds the three emoji rows of one queue group.
type GroupRow struct {
	Group    string
	Reserved []string
	Actual   []string
	Time     []string
}

// Grid is the per-node status of every compute queue, grouped by queue
// group in first-seen order.
type Grid struct {
	Groups []GroupRow
}

// BuildGrid classifies every node. now is the reference for idle times.
func BuildGrid(nodes []sge.QueueNode, now time.Time) Grid {
	var g Grid
	index := make(map[string]int)

	for _, n := range nodes {
		i, ok := index[n.Group()]
		if !ok {
			i = len(g.Groups)
			index[n.Group()] = i
			g.Groups = append(g.Groups, GroupRow{Group: n.Group()})
		}

		row := &g.Groups[i]
		row.Reserved = append(row.Reserved, Reservation(n))
		row.Actual = append(row.Actual, Activity(n))
		row.Time = append(row.Time, Idle(n, now))
	}

	return g
}

// String renders the grid as chat text:
//
//	*gpu.q*
//	:alice: :余裕: reserved
//	:全力: :n2: actual
//	:3h: :ジョブなし: time
func (g Grid) String() string {
	var b strings.Builder
	for _, row := range g.Groups {
		b.WriteString("*" + row.Group + "*\n")
		b.WriteString(strings.Join(row.Reserved, " ") + " reserved\n")
		b.WriteString(strings.Join(row.Actual, " ") + " actual\n")
		b.WriteString(strings.Join(row.Time, " ") + " time\n")
	}
	return b.String()
}

// Empty reports whether no compute queue was found.
func (g Grid) Empty() bool {
	return len(g.Groups) == 0
}
