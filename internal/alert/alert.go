// Package alert turns parsed scheduler reports into per-user warnings.
package alert

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/sgebot/internal/sge"
)

// Thresholds. Both comparisons are strict.
const (
	// HighMemoryPercent is the memory use above which a host is flagged.
	HighMemoryPercent = 95.0

	// CPUOveruseMargin is how far load may exceed cores before a host is flagged.
	CPUOveruseMargin = 1.0
)

// Kind identifies what an alert is about.
type Kind int

const (
	KindMemory Kind = iota
	KindCPU
	KindJobError
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory-overuse"
	case KindCPU:
		return "cpu-overuse"
	case KindJobError:
		return "job-error"
	default:
		return "unknown"
	}
}

// Alert is one warning addressed to one user.
type Alert struct {
	User string
	Kind Kind

	// Queues lists the affected queue instances (memory and CPU alerts).
	Queues []string

	// JobID and Lines describe the failing job (job-error alerts).
	JobID string
	Lines []string
}

// Detail returns the alert body without the mention line.
func (a Alert) Detail() string {
	queues := strings.Join(a.Queues, ", ")
	switch a.Kind {
	case KindMemory:
		return fmt.Sprintf("%sのジョブが%g%%以上のメモリを消費してしまっています。低速化やクラッシュの恐れがあります。\n"+
			"よりメモリの大きなノードを使用しましょう。\n", queues, HighMemoryPercent)
	case KindCPU:
		return fmt.Sprintf("%sのジョブが割り当てコア数以上のCPUを消費しています。"+
			"並列化の問題か、ゾンビプロセスの存在の可能性があります。\n", queues)
	case KindJobError:
		return fmt.Sprintf("%sのジョブに問題が発生している可能性があります。\n%s\n", a.JobID, strings.Join(a.Lines, "\n"))
	default:
		return ""
	}
}

// Message renders the alert with a mention of its user.
func (a Alert) Message() string {
	return "@" + a.User + "\n:warning: " + a.Detail()
}

// Format joins alerts into one chat post. Empty input gives "".
func Format(alerts []Alert) string {
	var b strings.Builder
	for _, a := range alerts {
		b.WriteString(a.Message())
	}
	return b.String()
}

// MemoryAlerts warns the users whose running jobs sit on hosts above
// HighMemoryPercent memory use.
func MemoryAlerts(hosts []sge.HostMetrics, jobs []sge.JobRow) []Alert {
	return joinByUser(KindMemory, hosts, jobs, func(h sge.HostMetrics) bool {
		return h.MemoryUsePercent() > HighMemoryPercent
	})
}

// CPUAlerts warns the users whose running jobs sit on hosts whose load
// exceeds their cores by more than CPUOveruseMargin.
func CPUAlerts(hosts []sge.HostMetrics, jobs []sge.JobRow) []Alert {
	return joinByUser(KindCPU, hosts, jobs, func(h sge.HostMetrics) bool {
		return h.FreeCPUs() > CPUOveruseMargin
	})
}

// JobErrorAlerts gives one alert per job in an error state. Each alert
// carries only that job's own lines.
func JobErrorAlerts(errs []sge.ErrorJob) []Alert {
	alerts := make([]Alert, 0, len(errs))
	for _, e := range errs {
		alerts = append(alerts, Alert{
			User:  e.User,
			Kind:  KindJobError,
			JobID: e.JobID,
			Lines: e.Lines,
		})
	}
	return alerts
}

// joinByUser matches flagged hosts to the jobs running on them and groups
// the distinct queues by user, both in first-seen order.
func joinByUser(kind Kind, hosts []sge.HostMetrics, jobs []sge.JobRow, flagged func(sge.HostMetrics) bool) []Alert {
	var alerts []Alert
	byUser := make(map[string]int)
	seen := make(map[string]bool)

	for _, h := range hosts {
		if !flagged(h) {
			continue
		}
		for _, j := range jobs {
			if j.Node() == "" || j.Node() != h.Node {
				continue
			}

			i, ok := byUser[j.User]
			if !ok {
				i = len(alerts)
				byUser[j.User] = i
				alerts = append(alerts, Alert{User: j.User, Kind: kind})
			}

			key := j.User + "\x00" + j.Queue
			if !seen[key] {
				seen[key] = true
				alerts[i].Queues = append(alerts[i].Queues, j.Queue)
			}
		}
	}

	return alerts
}
