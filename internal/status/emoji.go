// Package status classifies compute queue instances into the emoji codes
// the lab channel reads at a glance, and lays them out as a grid.
package status

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/sgebot/internal/sge"
)

// Emoji codes shared by the reservation, activity and idle rows. They are
// custom emoji on the lab workspace.
const (
	NoJob        = ":ジョブなし:"
	Headroom     = ":余裕:"
	FullThrottle = ":全力:"
	OverCapacity = ":cpu利用率超過:"
	Disconnected = ":disconnected:"
	Over14Days   = ":over14d:"
)

// Load thresholds relative to the node's slot count.
const (
	OverCapacityMargin = 0.5
	FullThrottleMargin = 1.0
	IdleLoad           = 1.0
	NumberedLoadLimit  = 32.0
)

// UserTag is the emoji named after a user.
func UserTag(user string) string {
	return ":" + user + ":"
}

// LoadTag is the numbered emoji for a load average, e.g. :n7: for 7.9.
func LoadTag(load float64) string {
	return fmt.Sprintf(":n%d:", int(load))
}

// Reservation classifies how much of the node the scheduler has handed out.
// A single user holding every slot gets their own tag.
func Reservation(q sge.QueueNode) string {
	if len(q.Jobs) == 0 {
		return NoJob
	}

	perUser := make(map[string]int)
	total := 0
	for _, j := range q.Jobs {
		perUser[j.User] += j.Slots
		total += j.Slots
	}

	if total != q.Total {
		return Headroom
	}
	if len(perUser) == 1 {
		return UserTag(q.Jobs[0].User)
	}
	return FullThrottle
}

// Activity classifies the node's load average against its slot count.
// Disconnected nodes get no load-based classification.
func Activity(q sge.QueueNode) string {
	if q.Disconnected() {
		return Disconnected
	}

	cores := float64(q.Total)
	switch {
	case q.Load > cores+OverCapacityMargin:
		return OverCapacity
	case q.Load > cores-FullThrottleMargin:
		return FullThrottle
	case q.Load < IdleLoad:
		return NoJob
	case q.Load < NumberedLoadLimit:
		return LoadTag(q.Load)
	default:
		return Headroom
	}
}

// Idle classifies how long ago the newest job on the node was submitted.
func Idle(q sge.QueueNode, now time.Time) string {
	latest, ok := q.LatestSubmit()
	if !ok {
		return NoJob
	}
	return IdleTag(now.Sub(latest))
}

// IdleTag buckets an elapsed time, coarser as it grows:
// minutes under 4m, quarter hours under 1h, hours under 4h,
// 4-hour steps under 1d, days under 14d.
func IdleTag(elapsed time.Duration) string {
	// Clock skew between the cluster and this host.
	if elapsed < 0 {
		elapsed = 0
	}

	minutes := elapsed.Minutes()
	hours := elapsed.Hours()
	switch {
	case elapsed < 4*time.Minute:
		return fmt.Sprintf(":%dm:", int(minutes))
	case elapsed < time.Hour:
		return fmt.Sprintf(":%dm:", int(minutes/15)*15)
	case elapsed < 4*time.Hour:
		return fmt.Sprintf(":%dh:", int(hours))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf(":%dh:", int(hours/4)*4)
	case elapsed < 14*24*time.Hour:
		return fmt.Sprintf(":%dd:", int(hours/24))
	default:
		return Over14Days
	}
}
