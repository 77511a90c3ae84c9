// Package classify decides what a course link points at.
//
// A link is Downloadable when its HEAD response carries a non-textual
// content type. Otherwise the URL itself is inspected for the portal's
// resource markers: mod/page/ for content pages and mod/folder/ for folders.
// Anything else is ignored.
package classify

import (
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
)

// Kind is the classification of a link
type Kind int

const (
	Ignorable Kind = iota
	Downloadable
	ContentPage
	Folder
)

func (k Kind) String() string {
	switch k {
	case Downloadable:
		return "downloadable"
	case ContentPage:
		return "page"
	case Folder:
		return "folder"
	default:
		return "ignorable"
	}
}

const (
	pageMarker   = "mod/page/"
	folderMarker = "mod/folder/"
)

var filenamePattern = regexp.MustCompile(`filename=(.+)`)

// IsDownloadable reports whether headers describe binary content. A missing
// content type is treated as not downloadable.
func IsDownloadable(h http.Header) bool {
	if h == nil {
		return false
	}
	contentType := strings.ToLower(h.Get("Content-Type"))
	if contentType == "" {
		return false
	}
	return !strings.Contains(contentType, "text") && !strings.Contains(contentType, "html")
}

// IsPage reports whether rawURL is a content page
func IsPage(rawURL string) bool {
	return strings.Contains(rawURL, pageMarker)
}

// IsFolder reports whether rawURL is a folder listing
func IsFolder(rawURL string) bool {
	return strings.Contains(rawURL, folderMarker)
}

// Classify applies the checks in order: Downloadable, ContentPage, Folder.
// The header test wins, so a mod/page/ URL that serves a PDF is Downloadable.
func Classify(rawURL string, h http.Header) Kind {
	switch {
	case IsDownloadable(h):
		return Downloadable
	case IsPage(rawURL):
		return ContentPage
	case IsFolder(rawURL):
		return Folder
	default:
		return Ignorable
	}
}

// FilenameFromDisposition extracts the file name from a Content-Disposition
// header value. The result is a bare base name with quotes removed.
func FilenameFromDisposition(cd string) (string, bool) {
	if cd == "" {
		return "", false
	}

	var name string
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		name = params["filename"]
	}
	if name == "" {
		m := filenamePattern.FindStringSubmatch(cd)
		if m == nil {
			return "", false
		}
		name = m[1]
		if i := strings.Index(name, ";"); i >= 0 && strings.HasPrefix(name, `"`) {
			name = name[:i]
		}
	}

	name = strings.Trim(strings.TrimSpace(name), `"'`)
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", false
	}
	return name, true
}
