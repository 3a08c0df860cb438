package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipdeck/internal/api"
	"clipdeck/internal/projects"
	"clipdeck/internal/textutil"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Create, render, and track projects",
	}

	projectsCmd.AddCommand(newProjectsListCommand(ctx))
	projectsCmd.AddCommand(newProjectsShowCommand(ctx))
	projectsCmd.AddCommand(newProjectsCreateCommand(ctx))
	projectsCmd.AddCommand(newProjectsRenderCommand(ctx))
	projectsCmd.AddCommand(newProjectsDeleteCommand(ctx))
	projectsCmd.AddCommand(newProjectsWatchCommand(ctx))

	return projectsCmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.projectService(runCtx)
			if err != nil {
				return err
			}
			list, err := svc.List(runCtx)
			if err != nil {
				return explainSessionError(err)
			}
			if !watch {
				if ctx.jsonOutput() {
					return writeJSON(cmd, list)
				}
				printProjects(cmd, ctx, list)
				return nil
			}
			if !ctx.jsonOutput() {
				printProjects(cmd, ctx, list)
			}
			return runWatch(cmd, ctx, watchFlags{initial: list})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep refreshing while renders are in progress")
	return cmd
}

func newProjectsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show project details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "project id")
			if err != nil {
				return err
			}
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.projectService(runCtx)
			if err != nil {
				return err
			}
			project, err := svc.Get(runCtx, id)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, project)
			}
			printProjectDetail(cmd, project)
			return nil
		},
	}
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	var draft projects.Draft
	var paramPairs []string
	var paramsFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project from a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(paramsFile, paramPairs)
			if err != nil {
				return err
			}
			draft.Parameters = params
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.projectService(runCtx)
			if err != nil {
				return err
			}
			resp, err := svc.Create(runCtx, draft)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created project %s\n", resp.Key())
			if resp.Message != "" {
				fmt.Fprintln(out, resp.Message)
			}
			fmt.Fprintf(out, "Start rendering with: clipdeck projects render %s\n", resp.Key())
			return nil
		},
	}

	cmd.Flags().StringVarP(&draft.TemplateID, "template", "t", "", "Template id (required)")
	cmd.Flags().StringVarP(&draft.Name, "name", "n", "", "Project name (defaults to \"<template> Project\")")
	cmd.Flags().StringVarP(&draft.Description, "description", "d", "", "Project description")
	cmd.Flags().StringVarP(&draft.Quality, "quality", "q", api.Quality1080p, "Render quality: "+strings.Join(api.Qualities(), ", "))
	cmd.Flags().StringArrayVarP(&paramPairs, "param", "P", nil, "Template parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&paramsFile, "params-file", "", "JSON file with template parameters")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func newProjectsRenderCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "render <project-id>",
		Short: "Start rendering a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "project id")
			if err != nil {
				return err
			}
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.projectService(runCtx)
			if err != nil {
				return err
			}
			resp, err := svc.Render(runCtx, id)
			if err != nil {
				return explainSessionError(err)
			}
			if !ctx.jsonOutput() {
				msg := resp.Message
				if msg == "" {
					msg = "Render started"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (status: %s)\n", msg, statusTitle(resp.Status))
			}
			if !watch {
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				return nil
			}
			return runWatch(cmd, ctx, watchFlags{projectID: id})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the render until it finishes")
	return cmd
}

func newProjectsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "project id")
			if err != nil {
				return err
			}
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.projectService(runCtx)
			if err != nil {
				return err
			}
			resp, err := svc.Delete(runCtx, id)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			msg := resp.Message
			if msg == "" {
				msg = "Project deleted"
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newProjectsWatchCommand(ctx *commandContext) *cobra.Command {
	var flags watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow in-progress renders until they finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, flags)
		},
	}

	cmd.Flags().StringVar(&flags.projectID, "project", "", "Only watch this project")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "Refresh interval (defaults to polling.interval_seconds)")
	cmd.Flags().StringVar(&flags.metricsBind, "metrics-bind", "", "Serve Prometheus metrics on this address while watching")
	return cmd
}

func printProjects(cmd *cobra.Command, ctx *commandContext, list []api.Project) {
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No projects found")
		return
	}
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			p.Key(),
			textutil.Truncate(p.Name, 32),
			p.TemplateInfo.Name,
			renderStatus(p.Status, colorize),
			p.RenderQuality,
			formatAge(p.UpdatedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Name", "Template", "Status", "Quality", "Updated"},
		rows,
		nil,
		tableStyle(ctx.theme(cmd.Context()), colorize),
	))
}

func printProjectDetail(cmd *cobra.Command, p *api.Project) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.Key())
	if desc := textutil.PlainText(p.Description); desc != "" {
		fmt.Fprintln(out, desc)
	}
	template := p.TemplateInfo.Name
	if template == "" {
		template = p.TemplateID
	}
	fmt.Fprintf(out, "Template: %s\n", template)
	fmt.Fprintf(out, "Status:   %s\n", renderStatus(p.Status, colorize))
	fmt.Fprintf(out, "Quality:  %s\n", p.RenderQuality)
	fmt.Fprintf(out, "Created:  %s\n", formatDate(p.CreatedAt))
	if p.RenderStartedAt != "" {
		fmt.Fprintf(out, "Started:  %s\n", formatAge(p.RenderStartedAt))
	}
	if p.RenderCompletedAt != "" {
		fmt.Fprintf(out, "Finished: %s\n", formatAge(p.RenderCompletedAt))
	}
	if p.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration: %s\n", formatSeconds(p.DurationSeconds))
	}
	if p.FileSizeMB > 0 {
		fmt.Fprintf(out, "Size:     %s\n", formatSizeMB(p.FileSizeMB))
	}
	if p.VideoURL != "" {
		fmt.Fprintf(out, "Video:    %s\n", p.VideoURL)
	}
	if len(p.Parameters) > 0 {
		fmt.Fprintln(out, "Parameters:")
		for _, name := range slices.Sorted(maps.Keys(p.Parameters)) {
			fmt.Fprintf(out, "  %s = %v\n", name, p.Parameters[name])
		}
	}
}

func roundElapsed(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Second)
}
