package parser

import (
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	errs "nalanda/pkg/errors"
	"nalanda/pkg/models"
)

var (
	textPolicy = bluemonday.StrictPolicy()

	blockElements = "p, div, li, tr, h1, h2, h3, h4, h5, h6, pre, blockquote"
	lineSpace     = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// ParseContentPage reduces a content page to its title and plain text
func ParseContentPage(r io.Reader) (models.Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.Page{}, errs.Wrap(errs.KindParse, err, "failed to parse content page")
	}

	region := mainRegion(doc, "#region-main-box", "[role=main]")
	if region == nil {
		return models.Page{}, errs.New(errs.KindParse, "content page has no main region")
	}

	title := ""
	for _, tag := range []string{"h2", "h1", "h3"} {
		if t := strings.TrimSpace(region.Find(tag).First().Text()); t != "" {
			title = t
			break
		}
	}
	if title == "" {
		return models.Page{}, errs.New(errs.KindParse, "content page has no heading")
	}

	text, err := pageText(region)
	if err != nil {
		return models.Page{}, errs.Wrap(errs.KindParse, err, "failed to extract text of %q", title)
	}
	return models.Page{Title: title, Text: text}, nil
}

// pageText strips all markup from region, keeping one line per block element
func pageText(region *goquery.Selection) (string, error) {
	region.Find("br").ReplaceWithHtml("\n")
	region.Find(blockElements).AppendHtml("\n")

	markup, err := goquery.OuterHtml(region)
	if err != nil {
		return "", err
	}
	text := html.UnescapeString(textPolicy.Sanitize(markup))
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = lineSpace.ReplaceAllString(text, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text) + "\n", nil
}
