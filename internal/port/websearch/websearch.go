// Package websearch defines the external web-search gateway port.
package websearch

import "context"

// Result is one ranked web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Gateway is the port interface for the web-search backend.
type Gateway interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}
