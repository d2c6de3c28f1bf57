package report

import (
	"path"
	"strings"
)

// Commands builds the scheduler command lines run on the machine.
type Commands struct {
	// Bin is the directory holding qstat and qhost.
	Bin string
}

func (c Commands) tool(name string) string {
	if c.Bin == "" {
		return name
	}
	return path.Join(c.Bin, name)
}

// HostTable lists per-host load and memory.
func (c Commands) HostTable() string {
	return c.tool("qhost")
}

// JobTable lists jobs without the two header lines.
func (c Commands) JobTable() string {
	return c.tool("qstat") + " | tail -n +3"
}

// QueueListing lists every queue instance with its jobs.
func (c Commands) QueueListing() string {
	return c.tool("qstat") + " -f"
}

// Summary is the plain job list posted as the aggregate report.
func (c Commands) Summary() string {
	return c.tool("qstat")
}

// UserJobs lists user's jobs, dropping lines that mention any excluded host.
func (c Commands) UserJobs(user string, exclude []string) string {
	var b strings.Builder
	b.WriteString(c.tool("qstat") + " -u " + user)
	for _, host := range exclude {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		b.WriteString(" | grep -v " + host)
	}
	return b.String()
}
