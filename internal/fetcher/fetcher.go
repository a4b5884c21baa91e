// Package fetcher downloads remote data over HTTP and parses CSV streams.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadCached fetches the URL to path unless a non-empty file is
	// already there. Returns true when the cached copy was reused.
	DownloadCached(ctx context.Context, url string, path string) (bool, error)
}
