// Package sge parses the text reports of Sun/Univa Grid Engine tools
// (qstat, qhost) into typed rows.
package sge

import (
	"strings"
	"time"
)

// SchedulerZone is the fixed offset the cluster prints timestamps in.
var SchedulerZone = time.FixedZone("JST", 9*60*60)

// timeLayout is how qstat prints submit/start times.
const timeLayout = "01/02/2006 15:04:05"

// JobReservation is one job line under a queue block of `qstat -f`.
type JobReservation struct {
	JobID     string
	User      string
	Slots     int
	Submitted time.Time
}

// QueueNode is one queue instance block of `qstat -f`.
type QueueNode struct {
	Queue    string // group@host
	Reserved int
	Used     int
	Total    int

	// Load is only meaningful when HasLoad is set; qstat prints -NA- for
	// hosts whose execd is not reporting.
	Load    float64
	HasLoad bool

	// States is the raw states column ("d", "au", ...), empty when healthy.
	States string

	Jobs []JobReservation
}

// Group returns the queue name before '@'.
func (q QueueNode) Group() string {
	group, _, _ := strings.Cut(q.Queue, "@")
	return group
}

// Host returns the host name after '@'.
func (q QueueNode) Host() string {
	return hostOf(q.Queue)
}

// Disabled reports whether the queue instance carries the 'd' state.
func (q QueueNode) Disabled() bool {
	return strings.Contains(q.States, "d")
}

// Disconnected reports whether the host is flagged down or not reporting load.
func (q QueueNode) Disconnected() bool {
	return q.Disabled() || !q.HasLoad
}

// LatestSubmit returns the newest submit time among the node's jobs.
func (q QueueNode) LatestSubmit() (time.Time, bool) {
	var latest time.Time
	for _, j := range q.Jobs {
		if j.Submitted.After(latest) {
			latest = j.Submitted
		}
	}
	return latest, len(q.Jobs) > 0
}

// memEpsilon keeps MemoryUsePercent finite on hosts that report no memory.
const memEpsilon = 1e-10

// HostMetrics is one host row of `qhost`, sizes in bytes.
type HostMetrics struct {
	Node     string
	Arch     string
	Cores    float64
	Load     float64
	MaxMem   float64
	UsedMem  float64
	MaxSwap  float64
	UsedSwap float64
}

// MemoryUsePercent returns used memory as a percentage of total memory.
func (h HostMetrics) MemoryUsePercent() float64 {
	return h.UsedMem / (h.MaxMem + memEpsilon) * 100
}

// FreeCPUs returns load minus cores; positive means more runnable
// processes than cores.
func (h HostMetrics) FreeCPUs() float64 {
	return h.Load - h.Cores
}

// JobRow is one line of plain `qstat`.
type JobRow struct {
	JobID     string
	Priority  float64
	Name      string
	User      string
	State     string
	Submitted time.Time
	Queue     string // empty for pending jobs
	Slots     int
	Tasks     string // ja-task-ID column, empty for non-array jobs
}

// Node returns the host the job runs on, or "" for pending jobs.
func (j JobRow) Node() string {
	return hostOf(j.Queue)
}

// ErrorJob is a job the scheduler holds in an error state (Eqw and friends).
type ErrorJob struct {
	JobID string
	User  string

	// Lines are the raw listing lines for this job.
	Lines []string
}

func hostOf(queue string) string {
	_, host, _ := strings.Cut(queue, "@")
	return host
}
