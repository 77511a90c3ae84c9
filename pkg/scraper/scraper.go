package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"
	"nalanda/pkg/classify"
	errs "nalanda/pkg/errors"
	"nalanda/pkg/logger"
	"nalanda/pkg/models"
	"nalanda/pkg/parser"
	"nalanda/pkg/storage"
)

// Finalizer persists the outcome of a run. It is called exactly once per
// Run, whatever way the run ends.
type Finalizer func(status Status, at time.Time) error

// Options selects what a run syncs
type Options struct {
	Username string
	Password string
	// Selection is a course selection such as "1,3-5"; empty means all
	// courses unless Prompt is set
	Selection string
	// Prompt asks for a selection after the course list is shown
	Prompt func(count int) (string, error)
}

// Scraper is the crawl driver. It logs in, lists courses and syncs the
// selected ones one section at a time.
type Scraper struct {
	portal       Portal
	store        *storage.Manager
	materializer *Materializer
	expander     *Expander
	rc           *RunContext
	clock        clock.Clock
	finalize     Finalizer
}

// New wires a driver. exclude holds file name globs that are never written.
func New(portal Portal, store *storage.Manager, exclude []string, rc *RunContext, clk clock.Clock, finalize Finalizer) (*Scraper, error) {
	if clk == nil {
		clk = clock.WallClock
	}
	m, err := NewMaterializer(portal, store, exclude, rc)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		portal:       portal,
		store:        store,
		materializer: m,
		expander:     NewExpander(portal),
		rc:           rc,
		clock:        clk,
		finalize:     finalize,
	}, nil
}

// Run performs one sync. The returned error is nil on completion and
// otherwise is what stopped the run; failures of single courses, sections
// or links are collected in the report instead. The finalizer runs before
// Run returns, even when the run panics.
func (s *Scraper) Run(ctx context.Context, opts Options) (report *Report, err error) {
	report = &Report{}
	start := s.clock.Now()

	defer func() {
		if p := recover(); p != nil {
			err = errs.New(errs.KindUnknown, "unexpected failure: %v", p)
		}
		report.Elapsed = s.clock.Now().Sub(start)
		s.rc.Status = StatusFor(err)
		s.rc.Logger.InfoWithFields("run finished", logger.Fields{
			"status":  string(s.rc.Status),
			"written": report.Written,
			"failed":  report.Failed,
		})
		if s.finalize == nil {
			return
		}
		if ferr := s.finalize(s.rc.Status, s.clock.Now()); ferr != nil {
			s.rc.Logger.WithError(ferr).Error("failed to record run status")
			s.rc.Console.Errorf("Could not record the run status: %v", ferr)
		}
	}()

	courses, err := s.login(ctx, opts)
	if err != nil {
		return report, err
	}

	indices, err := s.resolveSelection(opts, courses)
	if err != nil {
		return report, err
	}

	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return report, errs.Wrap(errs.KindInterrupt, err, "sync interrupted")
		}
		if !InRange(i, len(courses)) {
			s.rc.Console.Warnf("%d is not a valid index for a course. Skipping this one...", i)
			continue
		}
		if err := s.syncCourse(ctx, courses[i-1], report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Scraper) login(ctx context.Context, opts Options) ([]models.Course, error) {
	s.rc.Console.Printf("Contacting Nalanda and sending authentication details...")
	landing, err := s.portal.Login(ctx, opts.Username, opts.Password)
	if err != nil {
		if errs.Is(err, errs.KindInterrupt) || errs.Is(err, errs.KindLogin) {
			return nil, err
		}
		return nil, errs.Wrap(errs.KindLogin, err, "cannot reach the portal")
	}

	s.rc.Console.Printf("Getting list of courses...")
	courses, err := parser.ParseCourses(strings.NewReader(landing))
	if err != nil {
		return nil, err
	}
	s.rc.Logger.InfoWithFields("courses listed", logger.Fields{"count": len(courses)})
	return courses, nil
}

func (s *Scraper) resolveSelection(opts Options, courses []models.Course) ([]int, error) {
	names := make([]string, len(courses))
	for i, c := range courses {
		names[i] = c.Name
	}

	selection := opts.Selection
	if selection == "" && opts.Prompt != nil {
		// the list is the menu for the prompt, so it shows even when silent
		s.rc.Console.Announce("Courses found: ")
		for i, name := range names {
			s.rc.Console.Announce("\t%d) %s", i+1, name)
		}
		answer, err := opts.Prompt(len(courses))
		if err != nil {
			return nil, errs.Wrap(errs.KindInterrupt, err, "no course selection")
		}
		selection = answer
	} else {
		s.rc.Console.List("Courses found: ", names)
	}

	if selection == "" {
		all := make([]int, len(courses))
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}

	indices, invalid := ParseSelection(selection)
	for _, token := range invalid {
		s.rc.Console.Warnf("Oops! Something went wrong when processing %s.", token)
	}
	return indices, nil
}

func (s *Scraper) syncCourse(ctx context.Context, course models.Course, report *Report) error {
	s.rc.Console.Printf("\nChecking for new %s resources. Please wait...", course.Name)
	log := s.rc.Logger.WithField("course", course.Name)

	body, err := s.portal.GetPage(ctx, course.URL)
	if err != nil {
		return s.skip(report, log, err, "failed to load course page")
	}
	sections, err := parser.ExtractSections(bytes.NewReader(body))
	if err != nil {
		return s.skip(report, log, err, "course page has no sections")
	}
	report.Courses++

	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.KindInterrupt, err, "sync interrupted")
		}
		report.Sections++
		if err := s.syncSection(ctx, course, section, report); err != nil {
			return err
		}
	}
	return nil
}

// syncSection drains the section's worklist. Folder contents are appended
// to the same worklist and visited after everything queued before them.
func (s *Scraper) syncSection(ctx context.Context, course models.Course, section models.Section, report *Report) error {
	dir := s.store.Dir(course.Name, section.Name)
	log := s.rc.Logger.WithFields(logger.Fields{"course": course.Name, "section": section.Name})
	work := NewWorklist(section.Links)

	for {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.KindInterrupt, err, "sync interrupted")
		}
		link, ok := work.Next()
		if !ok {
			return nil
		}
		if err := s.visit(ctx, work, link, dir, report, log); err != nil {
			return err
		}
	}
}

func (s *Scraper) visit(ctx context.Context, work *Worklist, link, dir string, report *Report, log logger.Logger) error {
	header, headErr := s.portal.Head(ctx, link)
	if headErr != nil {
		if errs.IsFatal(headErr) {
			return headErr
		}
		// pages and folders can still be recognised by their URL
		log.WithError(headErr).DebugWithFields("HEAD failed, classifying by URL", logger.Fields{"url": link})
		header = nil
	}

	kind := classify.Classify(link, header)
	switch kind {
	case classify.Folder:
		links, err := s.expander.Expand(ctx, link)
		if err != nil {
			return s.skip(report, log, err, "failed to expand folder")
		}
		added := work.Push(links...)
		log.DebugWithFields("folder expanded", logger.Fields{
			"url":     link,
			"found":   len(links),
			"queued":  added,
			"pending": work.Pending(),
		})
		return nil

	case classify.Ignorable:
		if headErr != nil {
			return s.skip(report, log, headErr, fmt.Sprintf("cannot check %s", link))
		}
		report.Ignored++
		return nil
	}

	res, err := s.materializer.Materialize(ctx, ClassifiedLink{URL: link, Kind: kind, Header: header}, dir)
	if err != nil {
		logger.LogArtifact(log, link, res.Path, kind.String(), err)
		return s.skip(report, log, err, fmt.Sprintf("skipping %s", link))
	}
	logger.LogArtifact(log, link, res.Path, res.Outcome.String(), nil)

	switch res.Outcome {
	case Written:
		report.Written++
		report.Bytes += res.Bytes
	case SkippedExists:
		report.Skipped++
	case SkippedExcluded:
		report.Excluded++
	}
	return nil
}

// skip records a failure that only affects one unit of work. Fatal errors
// are passed back so the run stops.
func (s *Scraper) skip(report *Report, log logger.Logger, err error, what string) error {
	if errs.IsFatal(err) {
		return err
	}
	report.fail(err)
	log.WithError(err).Warn(what)
	s.rc.Console.Warnf("\t%s: %v", what, err)
	return nil
}
