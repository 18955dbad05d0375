package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"
)

// SummaryFile is the executive summary file name inside the reports directory.
const SummaryFile = "executive_summary.md"

// Summary is the executive summary of one run.
type Summary struct {
	RunID     string
	Reference time.Time
	Bullets   []string
	Charts    []Chart
	// ChartsHref is the charts directory relative to the summary file.
	ChartsHref string
}

var summaryTemplate = template.Must(template.New("summary").Parse(`# Executive Summary

{{range .Bullets}}{{.}}
{{end}}
## Key Charts
{{range .Charts}}<h3>{{.Title}}</h3>
<img alt="{{.Title}}" src="{{$.ChartsHref}}/{{.File}}" width="1000">

{{end}}---
Run {{.RunID}} · reference date {{.Reference.Format "2006-01-02"}}
`))

// Markdown renders the summary.
func (s Summary) Markdown() (string, error) {
	if s.ChartsHref == "" {
		s.ChartsHref = "../charts"
	}
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("Markdown: %w", err)
	}
	return buf.String(), nil
}

// ChartsHref returns chartsDir relative to reportsDir using forward slashes,
// falling back to the absolute charts path.
func ChartsHref(reportsDir, chartsDir string) string {
	rel, err := filepath.Rel(reportsDir, chartsDir)
	if err != nil {
		if abs, err := filepath.Abs(chartsDir); err == nil {
			return filepath.ToSlash(abs)
		}
		return filepath.ToSlash(chartsDir)
	}
	return filepath.ToSlash(rel)
}

// WriteSummary writes the summary to <dir>/executive_summary.md and returns the path.
func WriteSummary(dir string, s Summary) (string, error) {
	md, err := s.Markdown()
	if err != nil {
		return "", fmt.Errorf("WriteSummary: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("WriteSummary: creating reports dir: %w", err)
	}
	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("WriteSummary: %w", err)
	}
	return path, nil
}
