package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/leadsheet/internal/pipeline"
)

// Summary aggregates what one run found and wrote.
type Summary struct {
	Topic          string
	Provider       string
	Backend        string
	Pages          int
	LeadsFound     int
	RowsAppended   int
	WithFollowers  int
	MaxFollowers   int64
	TotalFollowers int64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// FromResult builds the summary for a finished pipeline run.
func FromResult(res *pipeline.Result) Summary {
	s := Summary{
		Topic:        res.Topic,
		Provider:     res.Provider,
		Backend:      res.Backend,
		Pages:        res.Pages,
		LeadsFound:   len(res.Records),
		RowsAppended: res.Appended,
		StartTime:    res.StartTime,
		EndTime:      res.EndTime,
		Duration:     res.Duration(),
	}

	for _, r := range res.Records {
		if r.Followers == nil {
			continue
		}
		s.WithFollowers++
		s.TotalFollowers += *r.Followers
		if *r.Followers > s.MaxFollowers {
			s.MaxFollowers = *r.Followers
		}
	}

	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Lead Run Summary
----------------
Topic:         {{.Topic}}
Provider:      {{.Provider}}
Backend:       {{.Backend}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Result Pages:  {{.Pages}}
Leads Found:   {{.LeadsFound}}
Rows Appended: {{.RowsAppended}}

Follower Counts:
  Known:   {{.WithFollowers}} of {{.LeadsFound}}
  Largest: {{.MaxFollowers}}
  Total:   {{.TotalFollowers}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}

	return nil
}
