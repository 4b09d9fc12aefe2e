package release

import (
	"context"
	"time"
)

// Fetcher performs timeout-bounded GET requests. Callers get an explicit error
// for every failure mode instead of an empty value.
type Fetcher interface {
	FetchBytes(ctx context.Context, caller string, url string) ([]byte, error)
	FetchJSON(ctx context.Context, caller string, url string, out any) error
}

// Catalog lists recent releases and resolves their details.
type Catalog interface {
	Scan(ctx context.Context) ([]Candidate, error)
	Details(ctx context.Context, name string) (ReleaseDetails, error)
	FileURL(releaseName string, fileName string) string
}

// BlobStore writes rendered artifacts and returns their public URL.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// RecordStore archives published release records.
type RecordStore interface {
	StoreRecord(ctx context.Context, record Record) error
}

// SocialClient uploads attachments and publishes posts on the social feed.
type SocialClient interface {
	UploadMedia(ctx context.Context, data []byte, filename string) (string, error)
	Post(ctx context.Context, text string, mediaIDs []string) (string, error)
	StatusURL(postID string) string
}

// Notifier mirrors operational events to alert channels. Sink failures are not escalated.
type Notifier interface {
	Notify(ctx context.Context, alert Alert)
}

// Renderer turns document text into a raster image.
type Renderer interface {
	Name() string
	Render(ctx context.Context, text string, title string) (Artifact, error)
}

// Hasher computes digests for deduplication keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}
