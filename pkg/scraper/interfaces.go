package scraper

import (
	"context"
	"net/http"
)

// Portal is the authenticated session the crawl runs against
type Portal interface {
	Login(ctx context.Context, username, password string) (string, error)
	Head(ctx context.Context, rawURL string) (http.Header, error)
	Get(ctx context.Context, rawURL string) (*http.Response, error)
	GetPage(ctx context.Context, rawURL string) ([]byte, error)
}
