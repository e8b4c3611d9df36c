// Progress reporting interfaces and implementations.

package export

import (
	"fmt"
	"io"
	"time"
)

// Stats summarizes one export run.
type Stats struct {
	Pages     int           `json:"pages"`
	Databases int           `json:"databases"`
	Rows      int           `json:"rows"`
	Assets    int           `json:"assets"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// ProgressReporter receives export progress events.
type ProgressReporter interface {
	OnStart(total int)
	OnProgress(current int, item string)
	OnWarning(msg string)
	OnError(err error)
	OnComplete(stats Stats)
}

// CLIProgress writes progress to a pair of writers, normally stdout and
// stderr.
type CLIProgress struct {
	Out io.Writer
	Err io.Writer
}

// OnStart is called when the export begins.
func (p *CLIProgress) OnStart(total int) {
	_, _ = fmt.Fprintf(p.Out, "Exporting %d items\n\n", total)
}

// OnProgress is called for each exported item.
func (p *CLIProgress) OnProgress(current int, item string) {
	_, _ = fmt.Fprintf(p.Out, "[%d] %s\n", current, item)
}

// OnWarning is called for non-fatal issues.
func (p *CLIProgress) OnWarning(msg string) {
	_, _ = fmt.Fprintf(p.Err, "Warning: %s\n", msg)
}

// OnError is called for errors that skip an item.
func (p *CLIProgress) OnError(err error) {
	_, _ = fmt.Fprintf(p.Err, "Error: %v\n", err)
}

// OnComplete is called when the export finishes.
func (p *CLIProgress) OnComplete(stats Stats) {
	_, _ = fmt.Fprintf(p.Out, "\nComplete!\n")
	_, _ = fmt.Fprintf(p.Out, "---------\n")
	_, _ = fmt.Fprintf(p.Out, "Pages:     %d\n", stats.Pages)
	_, _ = fmt.Fprintf(p.Out, "Databases: %d\n", stats.Databases)
	_, _ = fmt.Fprintf(p.Out, "Rows:      %d\n", stats.Rows)
	_, _ = fmt.Fprintf(p.Out, "Assets:    %d\n", stats.Assets)
	if stats.Errors > 0 {
		_, _ = fmt.Fprintf(p.Out, "Errors:    %d\n", stats.Errors)
	}
	_, _ = fmt.Fprintf(p.Out, "Duration:  %s\n", stats.Duration.Round(time.Second))
}

// NullProgress discards all progress events.
type NullProgress struct{}

// OnStart is called when the export begins.
func (p *NullProgress) OnStart(total int) {}

// OnProgress is called for each exported item.
func (p *NullProgress) OnProgress(current int, item string) {}

// OnWarning is called for non-fatal issues.
func (p *NullProgress) OnWarning(msg string) {}

// OnError is called for errors that skip an item.
func (p *NullProgress) OnError(err error) {}

// OnComplete is called when the export finishes.
func (p *NullProgress) OnComplete(stats Stats) {}
