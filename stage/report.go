package stage

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/teranos/ellipse/trip"
)

//go:embed templates/session.html
var sessionTemplate string

var reportTemplate = template.Must(template.New("session").Parse(sessionTemplate))

// Report is a self-contained HTML record of one session: its outcome, the
// final view and every tracking shot inlined as a data URL.
type Report struct {
	Name         string
	Timestamp    string
	Duration     time.Duration
	Success      bool
	ErrorMessage string
	TripReport   string
	FinalView    template.HTML
	Shots        []ReportShot
	Actions      []ReportAction
}

// Summary is the part of a Report that WriteIndex reads back. It is embedded
// in every report page as JSON.
type Summary struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Duration  string `json:"duration"`
	Success   bool   `json:"success"`
	Shots     int    `json:"shots"`
}

// Summary returns the report's index entry.
func (r Report) Summary() Summary {
	return Summary{
		Name:      r.Name,
		Timestamp: r.Timestamp,
		Duration:  r.Duration.String(),
		Success:   r.Success,
		Shots:     len(r.Shots),
	}
}

// ReportShot is a tracking shot as it appears in a Report.
type ReportShot struct {
	Label    string
	Filename string
	Step     int
	DataURL  template.URL
}

// ReportAction is one recorded action as it appears in a Report.
type ReportAction struct {
	Timestamp time.Time
	Type      string
	Details   string
}

// NewReport builds a report from a finished session.
func NewReport(name string, result *Result, shots []Shot) (Report, error) {
	report := Report{
		Name:      name,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		FinalView: ViewToHTML(""),
	}

	if result != nil {
		report.Duration = result.Duration.Round(time.Millisecond)
		report.Success = result.Success
		report.ErrorMessage = result.ErrorMessage
		report.TripReport = result.TripReport

		if n := len(result.Snapshots); n > 0 {
			report.FinalView = ViewToHTML(result.Snapshots[n-1].View)
		}
		for _, action := range result.Actions {
			report.Actions = append(report.Actions, ReportAction{
				Timestamp: action.Timestamp,
				Type:      action.Type,
				Details:   fmt.Sprint(action.Details),
			})
		}
	}

	for _, shot := range shots {
		url, err := imageDataURL(shot.Path)
		if err != nil {
			return report, trip.NewStumble(trip.Render, err.Error(), trip.Context{"shot": shot.Label})
		}
		report.Shots = append(report.Shots, ReportShot{
			Label:    shot.Label,
			Filename: filepath.Base(shot.Path),
			Step:     shot.Step,
			DataURL:  url,
		})
	}

	return report, nil
}

// Write renders the report to dir/report_<name>.html and returns its path.
func (r Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, "report_"+r.Name+".html")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := reportTemplate.Execute(file, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return path, file.Close()
}

// WriteReport writes the report of a stopped session next to its tracking
// shots.
func (op *Operator) WriteReport(name string, result *Result) (string, error) {
	report, err := NewReport(name, result, op.shots)
	if err != nil {
		return "", err
	}
	return report.Write(op.filmDir)
}

// imageDataURL inlines an image file as a base64 data URL.
func imageDataURL(path string) (template.URL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "image/png"
	}

	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}
