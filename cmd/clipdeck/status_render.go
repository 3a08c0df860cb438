package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipdeck/internal/api"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var titleCaser = cases.Title(language.English)

// statusTitle renders a wire status such as "rendering" as "Rendering".
func statusTitle(status api.ProjectStatus) string {
	value := strings.TrimSpace(string(status))
	if value == "" {
		return "Unknown"
	}
	return titleCaser.String(value)
}

func statusColor(status api.ProjectStatus) string {
	switch {
	case status == api.StatusCompleted:
		return ansiGreen
	case status == api.StatusFailed:
		return ansiRed
	case status.InFlight():
		return ansiYellow
	case status == api.StatusDraft:
		return ansiBlue
	default:
		return ""
	}
}

func renderStatus(status api.ProjectStatus, colorize bool) string {
	label := statusTitle(status)
	if !colorize {
		return label
	}
	if color := statusColor(status); color != "" {
		return color + label + ansiReset
	}
	return label
}

func renderTransition(name string, from, to api.ProjectStatus, colorize bool) string {
	return fmt.Sprintf("%s: %s -> %s", name, renderStatus(from, colorize), renderStatus(to, colorize))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
