package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipdeck/internal/config"
	"clipdeck/internal/export"
)

func newExportsCommand(ctx *commandContext) *cobra.Command {
	exportsCmd := &cobra.Command{
		Use:     "exports",
		Aliases: []string{"export"},
		Short:   "List rendered videos and download them",
	}

	exportsCmd.AddCommand(newExportsListCommand(ctx))
	exportsCmd.AddCommand(newExportsDownloadCommand(ctx))

	return exportsCmd
}

func newExportsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the export table",
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
			rows := export.Rows(list)
			if ctx.jsonOutput() {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				preview := "-"
				if row.Preview {
					preview = "available"
				}
				table = append(table, []string{row.Key, row.Name, row.Created, row.Finished, preview, row.Download})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Created", "Finished", "Preview", "Download"},
				table,
				nil,
				tableStyle(ctx.theme(runCtx), shouldColorize(out)),
			))
			return nil
		},
	}
}

func newExportsDownloadCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download <project-id>",
		Short: "Download a rendered video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "project id")
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := cfg.Paths.DownloadDir
			if strings.TrimSpace(dir) != "" {
				if target, err = config.ExpandPath(dir); err != nil {
					return err
				}
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
			downloader, err := ctx.downloader()
			if err != nil {
				return err
			}
			res, err := downloader.Download(runCtx, *project, target)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%s)\n", res.Path, humanize.IBytes(uint64(res.Bytes)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory (defaults to paths.download_dir)")
	return cmd
}
