package scraper

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// testPortal serves a small Moodle site:
//
//	course 1 "Course":
//	  Topic 1:   notes.pdf, a content page, a forum link
//	  Lecture 2: folder 20 -> slides.pdf and folder 21 -> folder 20 (a cycle)
//	  General:   a PDF served without a file name
//	course 2 "Broken/Course": a page without sections
type testPortal struct {
	*httptest.Server

	mu       sync.Mutex
	getCount map[string]int
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	p := &testPortal{getCount: make(map[string]int)}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

// gets counts GET requests for path
func (p *testPortal) gets(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getCount[path]
}

func (p *testPortal) html(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, strings.ReplaceAll(body, "{{base}}", p.URL))
}

func (p *testPortal) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		p.mu.Lock()
		p.getCount[r.URL.Path]++
		p.mu.Unlock()
	}

	switch r.URL.Path {
	case "/login/index.php":
		if r.Method == http.MethodPost {
			r.ParseForm()
			if r.PostForm.Get("username") != "student" || r.PostForm.Get("password") != "secret" {
				p.html(w, `<form><input name="username"></form>`)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "MoodleSession", Value: "ok", Path: "/"})
			http.Redirect(w, r, "/my/", http.StatusSeeOther)
			return
		}
		p.html(w, `<form><input type="hidden" name="logintoken" value="t"></form>`)

	case "/my/":
		if c, err := r.Cookie("MoodleSession"); err != nil || c.Value != "ok" {
			http.Redirect(w, r, "/login/index.php", http.StatusSeeOther)
			return
		}
		p.html(w, `<aside><section><h2>My courses</h2><ul>
<li><a href="{{base}}/course/view.php?id=1">Course</a></li>
<li><a href="{{base}}/course/view.php?id=2">Broken/Course</a></li>
</ul></section></aside>`)

	case "/course/view.php":
		if r.URL.Query().Get("id") != "1" {
			p.html(w, `<div role="main"><p>This course is being updated</p></div>`)
			return
		}
		p.html(w, `<div id="region-main-box"><ul class="topics">
<li id="section-1" aria-label="Topic 1"><ul>
  <li><a href="{{base}}/pluginfile.php/1/notes.pdf">notes</a></li>
  <li><a href="{{base}}/mod/page/view.php?id=10">Reading</a></li>
  <li><a href="{{base}}/mod/forum/view.php?id=11">Forum</a></li>
</ul></li>
<li id="section-2" aria-label="Lecture 2"><ul>
  <li><a href="{{base}}/mod/folder/view.php?id=20">Slides</a></li>
</ul></li>
<li id="section-3" aria-label="General"><ul>
  <li><a href="{{base}}/pluginfile.php/3/anonymous">Handout</a></li>
</ul></li>
</ul></div>`)

	case "/mod/page/view.php":
		p.html(w, `<div id="region-main-box"><h2>Reading List</h2><p>Chapter 1</p></div>`)

	case "/mod/forum/view.php":
		p.html(w, `<div role="main"><h2>Announcements</h2></div>`)

	case "/mod/folder/view.php":
		if r.URL.Query().Get("id") == "20" {
			p.html(w, `<div role="main"><ul>
<li><a href="{{base}}/pluginfile.php/5/slides.pdf">slides.pdf</a></li>
<li><a href="{{base}}/mod/folder/view.php?id=21">More</a></li>
</ul></div>`)
			return
		}
		p.html(w, `<div role="main"><ul>
<li><a href="{{base}}/mod/folder/view.php?id=20">Back</a></li>
<li><a href="{{base}}/pluginfile.php/5/slides.pdf#again">slides.pdf</a></li>
</ul></div>`)

	case "/pluginfile.php/1/notes.pdf":
		p.file(w, "notes.pdf", "%PDF notes")
	case "/pluginfile.php/5/slides.pdf":
		p.file(w, "slides.pdf", "%PDF slides")
	case "/pluginfile.php/3/anonymous":
		p.file(w, "", "%PDF anonymous")

	default:
		http.NotFound(w, r)
	}
}

func (p *testPortal) file(w http.ResponseWriter, name, body string) {
	w.Header().Set("Content-Type", "application/pdf")
	if name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	}
	io.WriteString(w, body)
}
