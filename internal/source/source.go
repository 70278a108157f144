package source

import "context"

// Source is the interface that all log backends must implement.
type Source interface {
	// FetchPage returns the page at req.Cursor for req.Fingerprint.
	// Entries are ordered newest first.
	FetchPage(ctx context.Context, req PageRequest) (*Page, error)

	// Type returns the source type identifier (e.g., "http", "local", "cloudwatch").
	Type() string

	// Metadata returns source metadata for display.
	Metadata() SourceMetadata

	// Close releases any resources held by the source.
	Close() error
}

// Watcher is implemented by sources that can signal new data without being
// polled. Each receive on the returned channel means "something changed".
// The channel is closed when ctx is done.
type Watcher interface {
	Changes(ctx context.Context) (<-chan struct{}, error)
}
