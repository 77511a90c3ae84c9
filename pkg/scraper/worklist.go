package scraper

import (
	"github.com/cespare/xxhash/v2"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Worklist is the FIFO queue of links pending in one section. Items are
// never removed; a cursor marks the next one to visit. A link is accepted
// once, so folders that reference each other cannot loop.
type Worklist struct {
	items []string
	next  int
	seen  map[uint64]struct{}
}

// NewWorklist creates a worklist seeded with links
func NewWorklist(links []string) *Worklist {
	w := &Worklist{seen: make(map[uint64]struct{}, len(links))}
	w.Push(links...)
	return w
}

// Push appends the links not seen before and returns how many were added
func (w *Worklist) Push(links ...string) int {
	added := 0
	for _, link := range links {
		key := linkKey(link)
		if _, ok := w.seen[key]; ok {
			continue
		}
		w.seen[key] = struct{}{}
		w.items = append(w.items, link)
		added++
	}
	return added
}

// Next returns the next pending link
func (w *Worklist) Next() (string, bool) {
	if w.next >= len(w.items) {
		return "", false
	}
	link := w.items[w.next]
	w.next++
	return link, true
}

// Pending returns the number of links not yet visited
func (w *Worklist) Pending() int {
	return len(w.items) - w.next
}

// NormalizeURL reparses u so equivalent spellings compare equal. The
// fragment is dropped since it never changes the fetched resource.
func NormalizeURL(u string) string {
	parsed, err := urlParser.Parse(u)
	if err != nil {
		return u
	}
	return parsed.Href(true)
}

func linkKey(u string) uint64 {
	return xxhash.Sum64String(NormalizeURL(u))
}
