// Package report builds the daily exposure summary from captured activity.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/privai-labs/privai-agent/internal/state"
)

// Builder compiles exposure reports.
type Builder struct {
	maxEntries int
	template   *template.Template
}

// New creates a report builder. maxEntries caps how many raw snapshots the
// report lists; the counts always cover everything.
func New(maxEntries int) (*Builder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{maxEntries: maxEntries, template: tmpl}, nil
}

// Report is a compiled exposure summary ready for sending.
type Report struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// reportData is the template data structure.
type reportData struct {
	Date      string
	Total     int
	Counts    []countRow
	Entries   []entryRow
	Truncated bool
}

type countRow struct {
	Platform string
	Posts    int
	Comments int
}

type entryRow struct {
	Platform string
	Kind     string
	Text     string
	Time     string
}

// Build compiles a report over the given activity window.
func (b *Builder) Build(entries []state.Activity) (*Report, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no activity to report")
	}

	type tally struct{ posts, comments int }
	byPlatform := make(map[string]*tally)
	for _, a := range entries {
		t := byPlatform[string(a.Platform)]
		if t == nil {
			t = &tally{}
			byPlatform[string(a.Platform)] = t
		}
		if a.Kind == state.ActivityPost {
			t.posts++
		} else {
			t.comments++
		}
	}

	var counts []countRow
	for p, t := range byPlatform {
		counts = append(counts, countRow{Platform: p, Posts: t.posts, Comments: t.comments})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Platform < counts[j].Platform })

	// Entries arrive oldest first; truncation drops from the front so the
	// newest activity is what the report shows.
	listed := entries
	truncated := false
	if len(listed) > b.maxEntries {
		listed = listed[len(listed)-b.maxEntries:]
		truncated = true
	}

	now := time.Now()
	data := reportData{
		Date:      now.Format("Monday, January 2"),
		Total:     len(entries),
		Counts:    counts,
		Truncated: truncated,
	}
	for _, a := range listed {
		data.Entries = append(data.Entries, entryRow{
			Platform: string(a.Platform),
			Kind:     string(a.Kind),
			Text:     a.Text,
			Time:     a.CapturedAt.Local().Format("15:04"),
		})
	}

	var html bytes.Buffer
	if err := b.template.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	return &Report{
		Subject:   fmt.Sprintf("privAI exposure report - %s", data.Date),
		HTMLBody:  html.String(),
		PlainBody: plainBody(data),
		CreatedAt: now,
	}, nil
}

// plainBody renders the text/plain alternative.
func plainBody(data reportData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "privAI exposure report - %s\n\n", data.Date)
	fmt.Fprintf(&sb, "%d captured interactions:\n", data.Total)
	for _, c := range data.Counts {
		fmt.Fprintf(&sb, "  %s: %d posts, %d comments\n", c.Platform, c.Posts, c.Comments)
	}
	sb.WriteString("\n")
	for _, e := range data.Entries {
		fmt.Fprintf(&sb, "[%s] %s %s: %s\n", e.Time, e.Platform, e.Kind, e.Text)
	}
	if data.Truncated {
		sb.WriteString("(older entries omitted)\n")
	}
	return sb.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>privAI exposure report</h2>
	<p>{{.Date}} &mdash; {{.Total}} captured interactions</p>
	<table cellpadding="6" cellspacing="0" border="0">
		<tr><th align="left">Platform</th><th align="right">Posts</th><th align="right">Comments</th></tr>
		{{range .Counts}}
		<tr><td>{{.Platform}}</td><td align="right">{{.Posts}}</td><td align="right">{{.Comments}}</td></tr>
		{{end}}
	</table>
	<hr>
	{{range .Entries}}
	<p><strong>{{.Time}} &middot; {{.Platform}} &middot; {{.Kind}}</strong><br>{{.Text}}</p>
	{{end}}
	{{if .Truncated}}<p><em>Older entries omitted.</em></p>{{end}}
</body>
</html>`
