package usecase

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/covcomment/pkg/domain/model"
)

const (
	// MaxCommentSize is GitHub's limit for comment body size.
	MaxCommentSize = 65536

	truncationNote = "\n\n---\n*Comment truncated due to size limits.*\n"
)

type RenderOptions struct {
	Marker     string
	Title      string
	BasePath   string
	MaxFiles   int
	Thresholds model.Thresholds
	Run        *model.WorkflowRun
}

// MarkerLine is the hidden line identifying comments owned by this tool.
func MarkerLine(marker string) string {
	return fmt.Sprintf("<!-- covcomment: %s -->", marker)
}

// Render turns a coverage report into the markdown comment body. The output
// depends only on the report contents and options, not on file order.
func Render(report *model.CoverageReport, opts RenderOptions) string {
	var content bytes.Buffer

	fmt.Fprintf(&content, "%s\n", MarkerLine(opts.Marker))

	title := opts.Title
	if title == "" {
		title = model.DefaultTitle
	}
	fmt.Fprintf(&content, "## %s\n\n", title)

	total := report.Totals()
	fmt.Fprintf(&content, "%s **%s** line coverage (%d of %d lines)\n\n",
		statusIcon(total.Lines.Percent(), opts.Thresholds),
		formatPercent(total.Lines),
		total.Lines.Hit, total.Lines.Found,
	)

	writeTotalsTable(&content, total)
	writeFilesTable(&content, report.Sorted(), opts)

	if opts.Run != nil {
		writeRunFooter(&content, opts.Run)
	}

	return truncateComment(content.String(), MaxCommentSize)
}

func writeTotalsTable(w *bytes.Buffer, total model.FileCoverage) {
	fmt.Fprintf(w, "| | Covered | Total | Coverage |\n")
	fmt.Fprintf(w, "|---|---:|---:|---:|\n")
	rows := []struct {
		name    string
		counter model.Counter
	}{
		{"Lines", total.Lines},
		{"Branches", total.Branches},
		{"Functions", total.Functions},
	}
	for _, row := range rows {
		// Lines always show; the others only when the tracefile reported them.
		if row.name != "Lines" && row.counter.Found == 0 {
			continue
		}
		fmt.Fprintf(w, "| %s | %d | %d | %s |\n", row.name, row.counter.Hit, row.counter.Found, formatPercent(row.counter))
	}
	fmt.Fprintf(w, "\n")
}

func writeFilesTable(w *bytes.Buffer, files []model.FileCoverage, opts RenderOptions) {
	if opts.MaxFiles <= 0 || len(files) == 0 {
		return
	}

	shown := files
	if len(shown) > opts.MaxFiles {
		shown = shown[:opts.MaxFiles]
	}

	fmt.Fprintf(w, "<details>\n<summary>Files (%d)</summary>\n\n", len(files))
	fmt.Fprintf(w, "| File | Lines | Branches | Functions |\n")
	fmt.Fprintf(w, "|---|---:|---:|---:|\n")
	for _, f := range shown {
		fmt.Fprintf(w, "| `%s` | %s | %s | %s |\n",
			escapeCell(displayPath(f.Path, opts.BasePath)),
			formatCell(f.Lines),
			formatCell(f.Branches),
			formatCell(f.Functions),
		)
	}
	if rest := len(files) - len(shown); rest > 0 {
		fmt.Fprintf(w, "\n*%d more files not shown.*\n", rest)
	}
	fmt.Fprintf(w, "\n</details>\n\n")
}

func writeRunFooter(w *bytes.Buffer, run *model.WorkflowRun) {
	parts := []string{}
	if run.URL != "" {
		parts = append(parts, fmt.Sprintf("Workflow run [#%d](%s)", run.ID, run.URL))
	} else if run.ID != 0 {
		parts = append(parts, fmt.Sprintf("Workflow run #%d", run.ID))
	}
	if run.HeadSHA != "" {
		sha := run.HeadSHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		parts = append(parts, fmt.Sprintf("commit `%s`", sha))
	}
	if len(parts) == 0 {
		return
	}
	fmt.Fprintf(w, "<sub>%s</sub>\n", strings.Join(parts, " · "))
}

func statusIcon(percent float64, t model.Thresholds) string {
	switch {
	case percent >= t.Warning:
		return "🟢"
	case percent >= t.Failure:
		return "🟡"
	default:
		return "🔴"
	}
}

func formatPercent(c model.Counter) string {
	return fmt.Sprintf("%.2f%%", c.Percent())
}

func formatCell(c model.Counter) string {
	if c.Found == 0 {
		return "-"
	}
	return fmt.Sprintf("%s (%d/%d)", formatPercent(c), c.Hit, c.Found)
}

func displayPath(path, basePath string) string {
	if basePath == "" {
		return path
	}
	prefix := strings.TrimSuffix(basePath, "/") + "/"
	return strings.TrimPrefix(path, prefix)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "`", "'")
}

// truncateComment cuts content to maxSize bytes, preferring a line boundary.
func truncateComment(content string, maxSize int) string {
	if len(content) <= maxSize {
		return content
	}

	availableSize := maxSize - len(truncationNote)
	if availableSize <= 0 {
		return truncationNote[:maxSize]
	}

	cut := availableSize
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	truncated := content[:cut]
	if lastNewline := strings.LastIndex(truncated, "\n"); lastNewline > availableSize/2 {
		truncated = truncated[:lastNewline]
	}

	return truncated + truncationNote
}
