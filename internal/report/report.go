// Package report runs one monitoring pass: it fetches the scheduler
// reports, derives alerts and node status, and hands the results to the
// chat dispatcher.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/rileyhilliard/sgebot/internal/alert"
	"github.com/rileyhilliard/sgebot/internal/logger"
	"github.com/rileyhilliard/sgebot/internal/notify"
	"github.com/rileyhilliard/sgebot/internal/sge"
	"github.com/rileyhilliard/sgebot/internal/status"
	"github.com/rileyhilliard/sgebot/internal/store"
	"github.com/rileyhilliard/sgebot/internal/ui"
)

// CommandRunner runs one shell command on the cluster.
type CommandRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

// StepDisplay shows the progress of each step.
type StepDisplay interface {
	Step(name string, fn func() error) error
}

// Options configures a Reporter.
type Options struct {
	Commands Commands

	// User owns the personal update; Machine names it.
	User    string
	Machine string

	// ExcludeHosts are dropped from the personal update.
	ExcludeHosts []string

	// Now is the clock for idle times. Defaults to time.Now.
	Now func() time.Time
}

// Reporter runs the steps of one invocation in order.
type Reporter struct {
	runner   CommandRunner
	dispatch *notify.Dispatcher
	display  StepDisplay
	opts     Options
	log      logger.Logger
}

// New creates a Reporter. display may be nil.
func New(runner CommandRunner, dispatch *notify.Dispatcher, display StepDisplay, opts Options, log logger.Logger) *Reporter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Noop()
	}
	if display == nil {
		display = plainSteps{}
	}
	return &Reporter{runner: runner, dispatch: dispatch, display: display, opts: opts, log: log}
}

type plainSteps struct{}

func (plainSteps) Step(_ string, fn func() error) error {
	err := fn()
	var skipped ui.ErrSkipped
	if errors.As(err, &skipped) {
		return nil
	}
	return err
}

// Run performs every step. The first failing step aborts the rest; posts
// made by earlier steps stay.
func (r *Reporter) Run(ctx context.Context) error {
	var threadTS string

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Memory and CPU alerts", func() error { return r.LoadAlerts(ctx) }},
		{"Job errors", func() error { return r.JobErrors(ctx) }},
		{"Node status", func() (err error) {
			threadTS, err = r.NodeStatus(ctx)
			return err
		}},
		{"Job list", func() error { return r.JobList(ctx, threadTS) }},
		{"Personal update", func() error { return r.PersonalUpdate(ctx) }},
	}

	for _, s := range steps {
		if err := r.display.Step(s.name, s.fn); err != nil {
			r.log.Error("%s failed", s.name)
			return err
		}
	}
	return nil
}

// LoadAlerts warns users whose jobs sit on hosts short of memory or with
// more runnable processes than cores. Memory and CPU alerts are separate
// posts.
func (r *Reporter) LoadAlerts(ctx context.Context) error {
	qhost, err := r.runner.Run(ctx, r.opts.Commands.HostTable())
	if err != nil {
		return err
	}
	hosts, err := sge.ParseHostTable(qhost)
	if err != nil {
		return err
	}

	qstat, err := r.runner.Run(ctx, r.opts.Commands.JobTable())
	if err != nil {
		return err
	}
	jobs, err := sge.ParseJobTable(qstat)
	if err != nil {
		return err
	}

	mem := alert.MemoryAlerts(hosts, jobs)
	cpu := alert.CPUAlerts(hosts, jobs)
	r.log.Debug("%d hosts, %d jobs, %d memory alerts, %d cpu alerts", len(hosts), len(jobs), len(mem), len(cpu))

	if err := r.dispatch.Alert(ctx, alert.Format(mem)); err != nil {
		return err
	}
	if err := r.dispatch.Alert(ctx, alert.Format(cpu)); err != nil {
		return err
	}
	if len(mem)+len(cpu) == 0 {
		return ui.ErrSkipped{Reason: "none"}
	}
	return nil
}

// JobErrors warns the owners of jobs held in an error state.
func (r *Reporter) JobErrors(ctx context.Context) error {
	listing, err := r.runner.Run(ctx, r.opts.Commands.QueueListing())
	if err != nil {
		return err
	}

	alerts := alert.JobErrorAlerts(sge.FilterErrorJobs(listing))
	if err := r.dispatch.Alert(ctx, alert.Format(alerts)); err != nil {
		return err
	}
	if len(alerts) == 0 {
		return ui.ErrSkipped{Reason: "none"}
	}
	return nil
}

// NodeStatus posts the per-node emoji grid and, in its thread, the full
// queue listing. It returns the grid message's timestamp, or "" when there
// was no compute queue to show.
func (r *Reporter) NodeStatus(ctx context.Context) (string, error) {
	listing, err := r.runner.Run(ctx, r.opts.Commands.QueueListing())
	if err != nil {
		return "", err
	}
	nodes, err := sge.ParseQueueListing(listing)
	if err != nil {
		return "", err
	}

	grid := status.BuildGrid(nodes, r.opts.Now())
	if grid.Empty() {
		r.log.Warn("no compute queues in the listing")
		return "", nil
	}

	ts, err := r.dispatch.Lab(ctx, grid.String(), "")
	if err != nil {
		return "", err
	}

	if listing != "" {
		if _, err := r.dispatch.Lab(ctx, listing, ts); err != nil {
			return "", err
		}
	}
	return ts, nil
}

// JobList posts the plain job list in threadTS when it changed since the
// last run.
func (r *Reporter) JobList(ctx context.Context, threadTS string) error {
	out, err := r.runner.Run(ctx, r.opts.Commands.Summary())
	if err != nil {
		return err
	}

	posted, err := r.dispatch.LabIfChanged(ctx, store.KeyStatus, FormatJobList(out), threadTS)
	if err != nil {
		return err
	}
	if !posted {
		return ui.ErrSkipped{Reason: "unchanged"}
	}
	return nil
}

// PersonalUpdate posts the user's own jobs through the webhook when they
// changed since the last run.
func (r *Reporter) PersonalUpdate(ctx context.Context) error {
	out, err := r.runner.Run(ctx, r.opts.Commands.UserJobs(r.opts.User, r.opts.ExcludeHosts))
	if err != nil {
		return err
	}

	posted, err := r.dispatch.WebhookIfChanged(ctx, store.KeyMyStatus, FormatPersonal(r.opts.Machine, out))
	if err != nil {
		return err
	}
	if !posted {
		return ui.ErrSkipped{Reason: "unchanged"}
	}
	return nil
}

// FormatJobList wraps the job list in a code block.
func FormatJobList(out string) string {
	return "```\n" + out + "\n```"
}

// FormatPersonal titles the user's job list with the machine name.
func FormatPersonal(machine, out string) string {
	return "`" + machine + " updates:`\n```\n" + out + "```\n"
}
