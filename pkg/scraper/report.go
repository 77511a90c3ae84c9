package scraper

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"nalanda/pkg/ui"
)

// Report totals what a run did
type Report struct {
	Courses  int
	Sections int
	Written  int
	Skipped  int
	Excluded int
	Ignored  int
	Failed   int
	Bytes    int64
	Elapsed  time.Duration
	// Errors holds the course, section and link failures that were skipped
	Errors *multierror.Error
}

func (r *Report) fail(err error) {
	r.Failed++
	r.Errors = multierror.Append(r.Errors, err)
}

// Err returns the aggregated skipped failures, or nil
func (r *Report) Err() error {
	return r.Errors.ErrorOrNil()
}

// Summary converts the report for display
func (r *Report) Summary() ui.Summary {
	return ui.Summary{
		Courses: r.Courses,
		Written: r.Written,
		Skipped: r.Skipped,
		Failed:  r.Failed,
		Bytes:   r.Bytes,
		Elapsed: r.Elapsed,
	}
}
