package export

import (
	"time"

	"clipdeck/internal/api"
)

// DateLayout formats creation and completion times in export rows.
const DateLayout = "01/02/2006 03:04 PM"

const (
	LabelDraft     = "Draft (Not rendered)"
	LabelRendering = "Rendering..."
	LabelFailed    = "Failed"
	placeholder    = "-"
)

// Row is one line of the export table.
type Row struct {
	Key      string
	Name     string
	Created  string
	Finished string
	// Preview is true when the project has a playable video.
	Preview bool
	// Download is the status label, or "<quality> / mp4 / 30 fps" when a
	// completed video can be downloaded.
	Download     string
	Downloadable bool
	VideoURL     string
	SizeMB       float64
}

// Rows converts projects into export rows in their original order.
func Rows(projects []api.Project) []Row {
	rows := make([]Row, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, RowFor(p))
	}
	return rows
}

// RowFor builds the export row for a single project.
func RowFor(p api.Project) Row {
	row := Row{
		Key:      p.Key(),
		Name:     p.Name,
		Created:  formatTimestamp(p.CreatedAt),
		Finished: finishedLabel(p),
		Preview:  p.VideoURL != "",
		VideoURL: p.VideoURL,
		SizeMB:   p.FileSizeMB,
	}
	row.Download, row.Downloadable = DownloadLabel(p)
	return row
}

// DownloadLabel returns the download column text and whether the project's
// video can be fetched.
func DownloadLabel(p api.Project) (string, bool) {
	switch {
	case p.Status == api.StatusDraft:
		return LabelDraft, false
	case p.Status.InFlight():
		return LabelRendering, false
	case p.Status == api.StatusFailed:
		return LabelFailed, false
	case p.Status == api.StatusCompleted && p.VideoURL != "":
		return p.RenderQuality + " / mp4 / 30 fps", true
	default:
		return placeholder, false
	}
}

func finishedLabel(p api.Project) string {
	if p.RenderCompletedAt != "" {
		return formatTimestamp(p.RenderCompletedAt)
	}
	if p.Status.InFlight() {
		return LabelRendering
	}
	return placeholder
}

func formatTimestamp(value string) string {
	ts, ok := api.ParseTimestamp(value)
	if !ok {
		if value == "" {
			return placeholder
		}
		return value
	}
	return ts.In(time.Local).Format(DateLayout)
}
