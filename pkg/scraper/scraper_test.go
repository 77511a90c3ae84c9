package scraper

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nalanda/pkg/classify"
	errs "nalanda/pkg/errors"
	"nalanda/pkg/logger"
	"nalanda/pkg/models"
	"nalanda/pkg/moodle"
	"nalanda/pkg/storage"
	"nalanda/pkg/ui"
)

var runTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type finalCall struct {
	status Status
	at     time.Time
}

type harness struct {
	root    string
	out     *bytes.Buffer
	log     *logger.TestLogger
	calls   []finalCall
	scraper *Scraper
}

func newHarness(t *testing.T, portal Portal, silent bool, exclude ...string) *harness {
	t.Helper()
	return newHarnessIn(t, t.TempDir(), portal, silent, exclude...)
}

func newHarnessIn(t *testing.T, root string, portal Portal, silent bool, exclude ...string) *harness {
	t.Helper()
	h := &harness{
		root: root,
		out:  &bytes.Buffer{},
		log:  logger.NewTestLogger(),
	}
	store, err := storage.NewManager(h.root, false)
	require.NoError(t, err)

	rc := NewRunContext(ui.NewBufferedConsole(h.out, silent), h.log)
	finalize := func(status Status, at time.Time) error {
		h.calls = append(h.calls, finalCall{status: status, at: at})
		return nil
	}
	h.scraper, err = New(portal, store, exclude, rc, testclock.NewClock(runTime), finalize)
	require.NoError(t, err)
	return h
}

func newPortalClient(t *testing.T, p *testPortal) *moodle.Client {
	t.Helper()
	client, err := moodle.NewClient(moodle.Options{
		BaseURL:     p.URL,
		Timeout:     time.Second,
		MaxAttempts: 1,
		Logger:      logger.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func (h *harness) path(parts ...string) string {
	return filepath.Join(append([]string{h.root}, parts...)...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

var credentials = Options{Username: "student", Password: "secret"}

func withSelection(selection string) Options {
	opts := credentials
	opts.Selection = selection
	return opts
}

func TestRunSyncsCourse(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), false)

	report, err := h.scraper.Run(context.Background(), withSelection("1"))
	require.NoError(t, err)

	lectures := h.path("Course", "Lectures")
	assert.Equal(t, "%PDF notes", readFile(t, filepath.Join(lectures, "notes.pdf")))
	assert.Equal(t, "%PDF slides", readFile(t, filepath.Join(lectures, "slides.pdf")))
	assert.Equal(t, "Reading List\nChapter 1\n", readFile(t, filepath.Join(lectures, "Reading List.txt")))
	assert.NoDirExists(t, h.path("Course", "General"), "a section with nothing written leaves no directory")

	assert.Equal(t, 1, report.Courses)
	assert.Equal(t, 3, report.Sections)
	assert.Equal(t, 3, report.Written)
	assert.Equal(t, 1, report.Ignored)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, errs.Is(report.Err(), errs.KindFilename))

	// the folder cycle is visited once
	assert.Equal(t, 1, portal.gets("/pluginfile.php/5/slides.pdf"))

	require.Len(t, h.calls, 1)
	assert.Equal(t, StatusCompleted, h.calls[0].status)
	assert.Equal(t, runTime, h.calls[0].at)

	out := h.out.String()
	assert.Contains(t, out, "Contacting Nalanda and sending authentication details...")
	assert.Contains(t, out, "\t1) Course")
	assert.Contains(t, out, "Checking for new Course resources. Please wait...")
	assert.Contains(t, out, "\tDownloading notes.pdf...")
	assert.True(t, h.log.HasMessage("run finished"))
}

func TestRunTwiceDownloadsNothing(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), false)

	_, err := h.scraper.Run(context.Background(), withSelection("1"))
	require.NoError(t, err)
	before := readFile(t, h.path("Course", "Lectures", "notes.pdf"))

	second := newHarnessIn(t, h.root, newPortalClient(t, portal), false)

	report, err := second.scraper.Run(context.Background(), withSelection("1"))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Written)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 1, portal.gets("/pluginfile.php/1/notes.pdf"), "an existing file is not fetched again")
	assert.Equal(t, 1, portal.gets("/pluginfile.php/5/slides.pdf"))
	assert.Equal(t, before, readFile(t, h.path("Course", "Lectures", "notes.pdf")))
	assert.NotContains(t, second.out.String(), "Downloading")
}

func TestRunLoginFailure(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), false)

	report, err := h.scraper.Run(context.Background(), Options{Username: "student", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindLogin))
	require.NotNil(t, report)
	assert.Zero(t, report.Written)

	require.Len(t, h.calls, 1)
	assert.Equal(t, StatusError, h.calls[0].status)
	assert.Equal(t, 0, portal.gets("/course/view.php"))
}

func TestRunUnreachablePortalIsLoginFailure(t *testing.T) {
	portal := newTestPortal(t)
	client := newPortalClient(t, portal)
	portal.Close()

	h := newHarness(t, client, true)
	_, err := h.scraper.Run(context.Background(), credentials)
	assert.True(t, errs.Is(err, errs.KindLogin))
	assert.Equal(t, StatusError, h.calls[0].status)
}

func TestRunSkipsBadSelections(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), false)

	report, err := h.scraper.Run(context.Background(), withSelection("0,2,5,x"))
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "0 is not a valid index for a course. Skipping this one...")
	assert.Contains(t, out, "5 is not a valid index for a course. Skipping this one...")
	assert.Contains(t, out, "Oops! Something went wrong when processing x.")

	// course 2 has no sections, which fails that course only
	assert.Equal(t, 0, report.Courses)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, errs.Is(report.Err(), errs.KindParse))
	assert.Equal(t, StatusCompleted, h.calls[0].status)
	assert.NoDirExists(t, h.path("Course"))
}

func TestRunPromptsForSelection(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), true)

	var offered int
	opts := credentials
	opts.Prompt = func(count int) (string, error) {
		offered = count
		return "2", nil
	}

	_, err := h.scraper.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, offered)
	// the menu is shown even when silent
	assert.Contains(t, h.out.String(), "\t2) Broken/Course")
	assert.Equal(t, 0, portal.gets("/pluginfile.php/1/notes.pdf"))
}

func TestRunInterrupted(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := credentials
	opts.Prompt = func(int) (string, error) {
		cancel()
		return "1", nil
	}

	_, err := h.scraper.Run(ctx, opts)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInterrupt))

	require.Len(t, h.calls, 1)
	assert.Equal(t, StatusInterrupted, h.calls[0].status)
	assert.Equal(t, StatusInterrupted, h.scraper.rc.Status)
	assert.NoDirExists(t, h.path("Course"))
}

func TestRunSilent(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), true)

	report, err := h.scraper.Run(context.Background(), withSelection("1"))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Written)
	assert.Empty(t, h.out.String())
}

func TestRunExcludePatterns(t *testing.T) {
	portal := newTestPortal(t)
	h := newHarness(t, newPortalClient(t, portal), false, "*.pdf")

	report, err := h.scraper.Run(context.Background(), withSelection("1"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 2, report.Excluded)
	assert.FileExists(t, h.path("Course", "Lectures", "Reading List.txt"))
	assert.NoFileExists(t, h.path("Course", "Lectures", "notes.pdf"))
	assert.Equal(t, 0, portal.gets("/pluginfile.php/1/notes.pdf"))
}

func TestRunRecoversPanic(t *testing.T) {
	h := newHarness(t, &stubPortal{panicOnLogin: true}, true)

	report, err := h.scraper.Run(context.Background(), credentials)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUnknown))
	assert.NotNil(t, report)
	require.Len(t, h.calls, 1)
	assert.Equal(t, StatusError, h.calls[0].status)
}

func TestRunReportsFinalizerFailure(t *testing.T) {
	var out bytes.Buffer
	store, err := storage.NewManager(t.TempDir(), false)
	require.NoError(t, err)
	rc := NewRunContext(ui.NewBufferedConsole(&out, true), nil)
	s, err := New(&stubPortal{loginErr: errs.New(errs.KindLogin, "nope")}, store, nil, rc, testclock.NewClock(runTime),
		func(Status, time.Time) error { return os.ErrPermission })
	require.NoError(t, err)

	_, err = s.Run(context.Background(), credentials)
	assert.True(t, errs.Is(err, errs.KindLogin))
	assert.Contains(t, out.String(), "Could not record the run status")
}

func TestSyncSectionReportsFailedHead(t *testing.T) {
	portal := &stubPortal{
		headErr: errs.New(errs.KindNetwork, "HTTP 500"),
		page:    `<div role="main"><h2>Week 1</h2></div>`,
	}
	h := newHarness(t, portal, false)

	report := &Report{}
	section := models.Section{Name: "General", Links: []string{
		"http://portal/pluginfile.php/7/handout",
		"http://portal/mod/page/view.php?id=4",
	}}
	require.NoError(t, h.scraper.syncSection(context.Background(), models.Course{Name: "Course"}, section, report))

	assert.Equal(t, 0, report.Ignored)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, errs.Is(report.Err(), errs.KindNetwork))
	assert.Contains(t, h.out.String(), "cannot check http://portal/pluginfile.php/7/handout")

	// a page is still recognised by its URL
	assert.Equal(t, 1, report.Written)
	assert.FileExists(t, h.path("Course", "General", "Week 1.txt"))
}

func TestNewRejectsBadExcludePattern(t *testing.T) {
	store, err := storage.NewManager(t.TempDir(), false)
	require.NoError(t, err)
	_, err = New(&stubPortal{}, store, []string{"["}, NewRunContext(ui.NewBufferedConsole(io.Discard, true), nil), nil, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfig))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusCompleted, StatusFor(nil))
	assert.Equal(t, StatusInterrupted, StatusFor(context.Canceled))
	assert.Equal(t, StatusInterrupted, StatusFor(errs.New(errs.KindInterrupt, "stop")))
	assert.Equal(t, StatusError, StatusFor(errs.New(errs.KindLogin, "denied")))
	assert.Equal(t, "Status: Completed", StatusCompleted.Label())
}

// stubPortal answers every request with canned data
type stubPortal struct {
	panicOnLogin bool
	loginErr     error
	headErr      error
	header       http.Header
	body         string
	page         string
	getCalls     int
}

func (s *stubPortal) Login(ctx context.Context, username, password string) (string, error) {
	if s.panicOnLogin {
		panic("session exploded")
	}
	return "", s.loginErr
}

func (s *stubPortal) Head(ctx context.Context, rawURL string) (http.Header, error) {
	if s.headErr != nil {
		return nil, s.headErr
	}
	return s.header, nil
}

func (s *stubPortal) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	s.getCalls++
	header := s.header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func (s *stubPortal) GetPage(ctx context.Context, rawURL string) ([]byte, error) {
	return []byte(s.page), nil
}

func newTestMaterializer(t *testing.T, portal Portal, exclude ...string) (*Materializer, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewManager(root, false)
	require.NoError(t, err)
	m, err := NewMaterializer(portal, store, exclude, NewRunContext(ui.NewBufferedConsole(io.Discard, true), nil))
	require.NoError(t, err)
	return m, store.Dir("Course", "Lectures")
}

func TestMaterializeNameFromGet(t *testing.T) {
	portal := &stubPortal{
		header: http.Header{"Content-Disposition": {`attachment; filename="late.pdf"`}},
		body:   "data",
	}
	m, dir := newTestMaterializer(t, portal)

	res, err := m.Materialize(context.Background(), ClassifiedLink{
		URL:    "http://portal/pluginfile.php/9",
		Kind:   classify.Downloadable,
		Header: http.Header{"Content-Type": {"application/pdf"}},
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, Written, res.Outcome)
	assert.Equal(t, filepath.Join(dir, "late.pdf"), res.Path)
	assert.Equal(t, int64(4), res.Bytes)
	assert.Equal(t, "data", readFile(t, res.Path))
}

func TestMaterializeWithoutFileName(t *testing.T) {
	portal := &stubPortal{body: "data"}
	m, dir := newTestMaterializer(t, portal)

	_, err := m.Materialize(context.Background(), ClassifiedLink{
		URL:  "http://portal/pluginfile.php/9",
		Kind: classify.Downloadable,
	}, dir)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindFilename))
	assert.NoDirExists(t, dir)
}

func TestMaterializeExistingFileSkipsGet(t *testing.T) {
	header := http.Header{"Content-Disposition": {"attachment; filename=notes.pdf"}}
	portal := &stubPortal{header: header, body: "new"}
	m, dir := newTestMaterializer(t, portal)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("old"), 0644))

	res, err := m.Materialize(context.Background(), ClassifiedLink{
		URL:    "http://portal/pluginfile.php/1",
		Kind:   classify.Downloadable,
		Header: header,
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, SkippedExists, res.Outcome)
	assert.Equal(t, 0, portal.getCalls)
	assert.Equal(t, "old", readFile(t, filepath.Join(dir, "notes.pdf")))
}

func TestMaterializeContentPage(t *testing.T) {
	portal := &stubPortal{page: `<div role="main"><h2>Week 1</h2><p>Read &amp; summarise</p></div>`}
	m, dir := newTestMaterializer(t, portal)

	res, err := m.Materialize(context.Background(), ClassifiedLink{
		URL:  "http://portal/mod/page/view.php?id=4",
		Kind: classify.ContentPage,
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, Written, res.Outcome)
	assert.Equal(t, "Week 1\nRead & summarise\n", readFile(t, filepath.Join(dir, "Week 1.txt")))
}

func TestMaterializeOtherKinds(t *testing.T) {
	m, dir := newTestMaterializer(t, &stubPortal{})
	for _, kind := range []classify.Kind{classify.Folder, classify.Ignorable} {
		res, err := m.Materialize(context.Background(), ClassifiedLink{URL: "http://portal/x", Kind: kind}, dir)
		require.NoError(t, err)
		assert.Equal(t, SkippedUnclassified, res.Outcome, kind.String())
	}
}
