package scraper

import (
	"bytes"
	"context"
	"fmt"

	"nalanda/pkg/parser"
)

// Expander lists the links inside a folder page
type Expander struct {
	portal Portal
}

// NewExpander creates an expander over portal
func NewExpander(portal Portal) *Expander {
	return &Expander{portal: portal}
}

// Expand fetches folderURL and returns its absolute links in page order
func (e *Expander) Expand(ctx context.Context, folderURL string) ([]string, error) {
	body, err := e.portal.GetPage(ctx, folderURL)
	if err != nil {
		return nil, err
	}
	links, err := parser.ExtractFolderLinks(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", folderURL, err)
	}
	return links, nil
}
