package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipdeck/internal/api"
	"clipdeck/internal/catalog"
	"clipdeck/internal/textutil"
)

const descriptionWidth = 48

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	templatesCmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template", "tpl"},
		Short:   "Browse and bookmark video templates",
	}

	templatesCmd.AddCommand(newTemplatesListCommand(ctx))
	templatesCmd.AddCommand(newTemplatesCategoriesCommand(ctx))
	templatesCmd.AddCommand(newTemplatesShowCommand(ctx))
	templatesCmd.AddCommand(newTemplatesSaveCommand(ctx, true))
	templatesCmd.AddCommand(newTemplatesSaveCommand(ctx, false))
	templatesCmd.AddCommand(newTemplatesSavedCommand(ctx))

	return templatesCmd
}

func newTemplatesListCommand(ctx *commandContext) *cobra.Command {
	var category, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.catalogService(runCtx)
			if err != nil {
				return err
			}
			templates, err := svc.List(runCtx, strings.TrimSpace(category))
			if err != nil {
				return explainSessionError(err)
			}
			templates = catalog.Search(templates, search)
			if ctx.jsonOutput() {
				return writeJSON(cmd, templates)
			}
			printTemplates(cmd, ctx, templates)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only show templates in this category")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name or description")
	return cmd
}

func newTemplatesCategoriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List template categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.catalogService(runCtx)
			if err != nil {
				return err
			}
			categories, err := svc.Categories(runCtx)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, categories)
			}
			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, "No categories found")
				return nil
			}
			for _, category := range categories {
				fmt.Fprintln(out, category)
			}
			return nil
		},
	}
}

func newTemplatesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <template-id>",
		Short: "Show a template and its parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "template id")
			if err != nil {
				return err
			}
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.catalogService(runCtx)
			if err != nil {
				return err
			}
			tpl, err := svc.Get(runCtx, id)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, tpl)
			}
			printTemplateDetail(cmd, ctx, tpl)
			return nil
		},
	}
}

func newTemplatesSaveCommand(ctx *commandContext, save bool) *cobra.Command {
	use, short := "save <template-id>", "Bookmark a template"
	if !save {
		use, short = "unsave <template-id>", "Remove a template bookmark"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "template id")
			if err != nil {
				return err
			}
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.catalogService(runCtx)
			if err != nil {
				return err
			}
			tpl, err := svc.Get(runCtx, id)
			if err != nil {
				return explainSessionError(err)
			}
			changed, err := svc.SetSaved(runCtx, tpl, save)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, tpl)
			}
			var verb string
			switch {
			case !changed && save:
				verb = "Already saved:"
			case !changed:
				verb = "Not saved:"
			case save:
				verb = "Saved"
			default:
				verb = "Removed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s saves)\n", verb, tpl.Name, humanize.Comma(int64(tpl.TotalSaves)))
			return nil
		},
	}
}

func newTemplatesSavedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List bookmarked templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.commandCtx(cmd)
			svc, err := ctx.catalogService(runCtx)
			if err != nil {
				return err
			}
			index := catalog.NewSavedIndex(svc)
			defer index.Close()
			templates, err := index.Templates(runCtx)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, templates)
			}
			if len(templates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved templates")
				return nil
			}
			printTemplates(cmd, ctx, templates)
			return nil
		},
	}
}

func printTemplates(cmd *cobra.Command, ctx *commandContext, templates []api.Template) {
	out := cmd.OutOrStdout()
	if len(templates) == 0 {
		fmt.Fprintln(out, "No templates found")
		return
	}
	rows := make([][]string, 0, len(templates))
	for _, tpl := range templates {
		rows = append(rows, []string{
			tpl.TemplateID,
			tpl.Name,
			tpl.Category,
			textutil.Truncate(textutil.PlainText(tpl.Description), descriptionWidth),
			humanize.Comma(int64(tpl.TotalSaves)),
			yesNo(tpl.IsSaved),
		})
	}
	style := tableStyle(ctx.theme(cmd.Context()), shouldColorize(out))
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Name", "Category", "Description", "Saves", "Saved"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		style,
	))
}

func printTemplateDetail(cmd *cobra.Command, ctx *commandContext, tpl *api.Template) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", tpl.Name, tpl.TemplateID)
	if desc := textutil.PlainText(tpl.Description); desc != "" {
		fmt.Fprintln(out, desc)
	}
	fmt.Fprintf(out, "Category:   %s\n", tpl.Category)
	if tpl.Resolution != "" {
		fmt.Fprintf(out, "Resolution: %s\n", tpl.Resolution)
	}
	fmt.Fprintf(out, "Duration:   %s\n", formatSeconds(tpl.DurationSeconds))
	if len(tpl.Tags) > 0 {
		fmt.Fprintf(out, "Tags:       %s\n", strings.Join(tpl.Tags, ", "))
	}
	fmt.Fprintf(out, "Saved:      %s (%s saves)\n", yesNo(tpl.IsSaved), humanize.Comma(int64(tpl.TotalSaves)))

	names := tpl.ParameterNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "Parameters: none")
		return
	}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		spec := tpl.ParametersSchema[name]
		maxLen := "-"
		if spec.MaxLength > 0 {
			maxLen = strconv.Itoa(spec.MaxLength)
		}
		rows = append(rows, []string{name, spec.Type, yesNo(spec.Required), formatDefault(spec.Default), maxLen})
	}
	style := tableStyle(ctx.theme(cmd.Context()), shouldColorize(out))
	fmt.Fprintln(out, renderTable(
		[]string{"Parameter", "Type", "Required", "Default", "Max length"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		style,
	))
}
