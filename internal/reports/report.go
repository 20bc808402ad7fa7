package reports

import (
	"strconv"
	"time"
)

// Row is a record a spreadsheet generator can lay out.
type Row interface {
	Columns() []string
	Values() []string
}

// ExecutionReport summarizes one job run.
type ExecutionReport struct {
	Job      string        `json:"job" yaml:"job"`
	Status   string        `json:"status" yaml:"status"`
	Records  int           `json:"records" yaml:"records"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Started  time.Time     `json:"started" yaml:"started"`
}

var executionColumns = []string{"job", "status", "records", "duration", "started"}

// Columns implements Row.
func (ExecutionReport) Columns() []string {
	return executionColumns
}

// Values implements Row.
func (r ExecutionReport) Values() []string {
	started := ""
	if !r.Started.IsZero() {
		started = r.Started.UTC().Format(time.RFC3339)
	}
	return []string{r.Job, r.Status, strconv.Itoa(r.Records), r.Duration.String(), started}
}
