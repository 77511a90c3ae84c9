// Package parser turns portal HTML into courses, sections, folder links and
// page text.
//
// All extraction runs as tree queries over a parsed document. The main
// content region and the side-block aside are addressed by selector, so a
// markup change that removes a region surfaces as a parse error instead of
// an index panic.
package parser

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	errs "nalanda/pkg/errors"
	"nalanda/pkg/models"
)

const (
	myCoursesHeading = "My courses"
	allCoursesLabel  = "All courses"

	// LecturesSection collects every section whose name mentions a lecture or topic
	LecturesSection = "Lectures"
)

var absoluteURL = regexp.MustCompile(`^https?://`)

// IsAbsolute reports whether href is an absolute http(s) URL
func IsAbsolute(href string) bool {
	return absoluteURL.MatchString(href)
}

// NormalizeSectionName maps "Lecture ..." and "Topic ..." sections onto the
// shared Lectures directory
func NormalizeSectionName(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "Lecture") || strings.Contains(name, "Topic") {
		return LecturesSection
	}
	return name
}

// ParseCourses reads the landing page and returns the enrolled courses in
// document order
func ParseCourses(r io.Reader) ([]models.Course, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "failed to parse landing page")
	}

	heading := doc.Find("h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == myCoursesHeading
	}).First()
	if heading.Length() == 0 {
		return nil, errs.New(errs.KindParse, "landing page has no %q heading", myCoursesHeading)
	}

	// the course list is the heading's own block; nothing outside it or
	// before the heading is a course
	block := heading.Closest("section, .block")
	if block.Length() == 0 {
		block = heading.Parent()
	}

	var courses []models.Course
	seen := false
	block.Find("h2, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.IsSelection(heading) {
			seen = true
			return true
		}
		if !seen || goquery.NodeName(s) != "li" || s.Find("li").Length() > 0 {
			return true
		}
		a := s.Find("a[href]").First()
		if a.Length() == 0 {
			return true
		}
		name := strings.TrimSpace(a.Text())
		if name == allCoursesLabel {
			return false
		}
		href, _ := a.Attr("href")
		if name == "" || href == "" {
			return true
		}
		courses = append(courses, models.Course{Name: name, URL: href})
		return true
	})
	return courses, nil
}

// ExtractSections reads a course page. Each li[id^=section-] under the
// topics list becomes one section holding its absolute links in order.
func ExtractSections(r io.Reader) ([]models.Section, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "failed to parse course page")
	}

	topics := doc.Find("ul.topics").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest("aside").Length() == 0
	}).First()
	if topics.Length() == 0 {
		return nil, errs.New(errs.KindParse, "course page has no topics list")
	}

	var sections []models.Section
	topics.ChildrenFiltered("li[id^='section-']").Each(func(_ int, li *goquery.Selection) {
		sections = append(sections, models.Section{
			Name:  NormalizeSectionName(sectionName(li)),
			Links: absoluteLinks(li),
		})
	})
	return sections, nil
}

func sectionName(li *goquery.Selection) string {
	if label, ok := li.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return label
	}
	if name := strings.TrimSpace(li.Find(".sectionname").First().Text()); name != "" {
		return name
	}
	id, _ := li.Attr("id")
	return id
}

// ExtractFolderLinks returns the absolute links inside a folder page's main
// region
func ExtractFolderLinks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "failed to parse folder page")
	}
	region := mainRegion(doc, "[role=main]", "#region-main-box")
	if region == nil {
		return nil, errs.New(errs.KindParse, "folder page has no main region")
	}
	return absoluteLinks(region), nil
}

// LoginToken returns the hidden logintoken field of the login form, if any
func LoginToken(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}
	token, _ := doc.Find("input[name=logintoken]").First().Attr("value")
	return token
}

// mainRegion returns the first selector match with side blocks removed
func mainRegion(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		region := doc.Find(sel).First()
		if region.Length() > 0 {
			region.Find("aside").Remove()
			return region
		}
	}
	return nil
}

func absoluteLinks(s *goquery.Selection) []string {
	var links []string
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if IsAbsolute(href) {
			links = append(links, href)
		}
	})
	return links
}
