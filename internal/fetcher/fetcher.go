package fetcher

import "context"

// PageFetcher retrieves the raw market overview document.
type PageFetcher interface {
	FetchPage(ctx context.Context) (string, error)
}
