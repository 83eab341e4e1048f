package stage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

//go:embed templates/index.html
var indexTemplateText string

var indexTemplate = template.Must(template.New("index").Parse(indexTemplateText))

const summaryOpen = `<script type="application/json" id="session-summary">`

// IndexEntry is one report listed by WriteIndex.
type IndexEntry struct {
	Summary
	File     string
	Modified time.Time
}

// WriteIndex writes dir/index.html linking every session report in dir,
// newest first.
func WriteIndex(dir string) (string, error) {
	entries, err := scanReports(dir)
	if err != nil {
		return "", fmt.Errorf("scan reports: %w", err)
	}

	path := filepath.Join(dir, "index.html")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	data := struct {
		Entries     []IndexEntry
		GeneratedAt time.Time
	}{entries, time.Now()}

	if err := indexTemplate.Execute(file, data); err != nil {
		return "", fmt.Errorf("render index: %w", err)
	}
	return path, file.Close()
}

// scanReports reads the summary of every report_*.html in dir. Pages without
// a summary are skipped.
func scanReports(dir string) ([]IndexEntry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "report_*.html"))
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		summary, err := readSummary(path)
		if err != nil {
			continue
		}
		entries = append(entries, IndexEntry{
			Summary:  summary,
			File:     filepath.Base(path),
			Modified: info.ModTime(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Modified.Equal(entries[j].Modified) {
			return entries[i].Modified.After(entries[j].Modified)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// readSummary extracts the JSON summary embedded in a report page.
func readSummary(path string) (Summary, error) {
	var summary Summary

	content, err := os.ReadFile(path)
	if err != nil {
		return summary, err
	}

	page := string(content)
	start := strings.Index(page, summaryOpen)
	if start < 0 {
		return summary, fmt.Errorf("%s: no session summary", filepath.Base(path))
	}
	body := page[start+len(summaryOpen):]

	end := strings.Index(body, "</script>")
	if end < 0 {
		return summary, fmt.Errorf("%s: unterminated session summary", filepath.Base(path))
	}

	if err := json.Unmarshal([]byte(body[:end]), &summary); err != nil {
		return summary, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return summary, nil
}
