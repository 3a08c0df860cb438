package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipdeck/internal/api"
	"clipdeck/internal/logging"
	"clipdeck/internal/metrics"
	"clipdeck/internal/poller"
	"clipdeck/internal/projects"
)

type watchFlags struct {
	projectID   string
	interval    time.Duration
	metricsBind string
	// initial skips the first listing when the command already has one.
	initial []api.Project
}

// runWatch follows renders until they settle, printing each status change.
// With --json only the final project list is written.
func runWatch(cmd *cobra.Command, ctx *commandContext, flags watchFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	runCtx := ctx.commandCtx(cmd)
	svc, err := ctx.projectService(runCtx)
	if err != nil {
		return err
	}
	notifier, err := ctx.notifier()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	collector, registry := ctx.telemetry()

	interval := flags.interval
	if interval <= 0 {
		interval = cfg.PollInterval()
	}
	bind := flags.metricsBind
	if bind == "" {
		bind = cfg.Metrics.Bind
	}

	watchCtx, cancel := context.WithCancel(runCtx)
	defer cancel()

	if bind != "" {
		ready := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			errCh <- metrics.Serve(watchCtx, bind, registry, logger, ready)
		}()
		select {
		case addr := <-ready:
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving metrics on http://%s/metrics\n", addr)
		case err := <-errCh:
			return fmt.Errorf("start metrics listener: %w", err)
		}
		defer func() {
			cancel()
			<-errCh
		}()
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	quiet := ctx.jsonOutput()
	first := true

	result, err := svc.Watch(watchCtx, projects.WatchOptions{
		Interval:  interval,
		ProjectID: flags.projectID,
		Initial:   flags.initial,
		Notifier:  notifier,
		Telemetry: collector,
		OnUpdate: func(list []api.Project, changes []poller.Transition) {
			if quiet {
				return
			}
			if first {
				first = false
				active := countInFlight(list)
				if active == 0 {
					fmt.Fprintln(out, "No renders in progress")
					return
				}
				fmt.Fprintf(out, "Watching %d render(s), refreshing every %s\n", active, interval)
				return
			}
			for _, change := range changes {
				if change.From == "" {
					continue
				}
				fmt.Fprintln(out, renderTransition(change.Name, change.From, change.To, colorize))
			}
		},
	})
	if err != nil {
		return explainSessionError(err)
	}
	if quiet {
		return writeJSON(cmd, result.Projects)
	}
	switch {
	case runCtx.Err() != nil:
		fmt.Fprintln(out, "Watch stopped")
	case result.Polls > 0:
		fmt.Fprintf(out, "Settled after %s: %d completed, %d failed\n",
			roundElapsed(result.Elapsed), result.Completed, result.Failed)
	}
	logger.Debug("watch finished",
		logging.Int("polls", result.Polls),
		logging.Duration("elapsed", result.Elapsed),
	)
	return nil
}

func countInFlight(list []api.Project) int {
	n := 0
	for _, p := range list {
		if p.Status.InFlight() {
			n++
		}
	}
	return n
}
