package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"nalanda/pkg/classify"
	errs "nalanda/pkg/errors"
	"nalanda/pkg/parser"
	"nalanda/pkg/storage"
)

// PageExtension is appended to a content page title to name its file
const PageExtension = ".txt"

// ClassifiedLink is a link together with what it was found to be
type ClassifiedLink struct {
	URL    string
	Kind   classify.Kind
	Header http.Header
}

// Outcome is what materializing one link did
type Outcome int

const (
	Written Outcome = iota
	SkippedExists
	SkippedUnclassified
	SkippedExcluded
)

func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case SkippedExists:
		return "exists"
	case SkippedExcluded:
		return "excluded"
	default:
		return "unclassified"
	}
}

// Result describes one materialized link
type Result struct {
	Outcome Outcome
	Path    string
	Bytes   int64
}

// Materializer writes downloadable files and content pages into a section
// directory unless they are already there
type Materializer struct {
	portal  Portal
	store   *storage.Manager
	exclude []glob.Glob
	rc      *RunContext
}

// NewMaterializer compiles the exclude patterns, which match file names
func NewMaterializer(portal Portal, store *storage.Manager, exclude []string, rc *RunContext) (*Materializer, error) {
	m := &Materializer{portal: portal, store: store, rc: rc}
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, err, "invalid exclude pattern %q", pattern)
		}
		m.exclude = append(m.exclude, g)
	}
	return m, nil
}

func (m *Materializer) excluded(name string) bool {
	for _, g := range m.exclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Materialize stores link under dir. Folders and ignorable links are not
// materialized and come back as SkippedUnclassified.
func (m *Materializer) Materialize(ctx context.Context, link ClassifiedLink, dir string) (Result, error) {
	switch link.Kind {
	case classify.Downloadable:
		return m.download(ctx, link, dir)
	case classify.ContentPage:
		return m.savePage(ctx, link, dir)
	default:
		return Result{Outcome: SkippedUnclassified}, nil
	}
}

// download names the file from the HEAD response when it can, so a file
// already on disk costs no GET at all
func (m *Materializer) download(ctx context.Context, link ClassifiedLink, dir string) (Result, error) {
	name, ok := classify.FilenameFromDisposition(link.Header.Get("Content-Disposition"))
	if ok {
		if res, done := m.precheck(name, dir); done {
			return res, nil
		}
	}

	resp, err := m.portal.Get(ctx, link.URL)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if !ok {
		name, ok = classify.FilenameFromDisposition(resp.Header.Get("Content-Disposition"))
		if !ok {
			return Result{}, errs.New(errs.KindFilename, "no file name in content-disposition of %s", link.URL)
		}
		if res, done := m.precheck(name, dir); done {
			return res, nil
		}
	}

	m.rc.Console.Printf("\tDownloading %s...", m.store.FileName(name))
	n, err := m.store.Save(resp.Body, dir, name)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, errs.Wrap(errs.KindInterrupt, ctx.Err(), "download of %s interrupted", name)
		}
		return Result{}, errs.Wrap(errs.KindUnknown, err, "failed to save %s", name)
	}
	return Result{Outcome: Written, Path: m.store.Path(dir, name), Bytes: n}, nil
}

func (m *Materializer) precheck(name, dir string) (Result, bool) {
	path := m.store.Path(dir, name)
	if m.excluded(name) {
		return Result{Outcome: SkippedExcluded, Path: path}, true
	}
	if m.store.Exists(dir, name) {
		return Result{Outcome: SkippedExists, Path: path}, true
	}
	return Result{}, false
}

func (m *Materializer) savePage(ctx context.Context, link ClassifiedLink, dir string) (Result, error) {
	body, err := m.portal.GetPage(ctx, link.URL)
	if err != nil {
		return Result{}, err
	}
	page, err := parser.ParseContentPage(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", link.URL, err)
	}

	name := page.Title + PageExtension
	if res, done := m.precheck(name, dir); done {
		return res, nil
	}

	m.rc.Console.Printf("\tDownloading %s...", m.store.FileName(name))
	n, err := m.store.Save(strings.NewReader(page.Text), dir, name)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindUnknown, err, "failed to save %s", name)
	}
	return Result{Outcome: Written, Path: m.store.Path(dir, name), Bytes: n}, nil
}
