package scraper

import (
	errs "nalanda/pkg/errors"
	"nalanda/pkg/logger"
	"nalanda/pkg/ui"
)

// Status is the outcome recorded for a run
type Status string

const (
	StatusCompleted   Status = "Completed"
	StatusInterrupted Status = "Interrupted"
	StatusError       Status = "Error"
)

// Label is the form stored in the configuration file and shown at startup
func (s Status) Label() string {
	return "Status: " + string(s)
}

// StatusFor maps the error that ended a run onto its recorded status
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusCompleted
	case errs.Is(err, errs.KindInterrupt):
		return StatusInterrupted
	default:
		return StatusError
	}
}

// RunContext is threaded through one run. Only the driver changes Status;
// everything else reads the console and logger from it.
type RunContext struct {
	Console *ui.Console
	Logger  logger.Logger
	Status  Status
}

// NewRunContext creates a context whose status starts as Completed
func NewRunContext(console *ui.Console, log logger.Logger) *RunContext {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RunContext{Console: console, Logger: log, Status: StatusCompleted}
}
