package scrape

import (
	"context"
	"time"
)

// Fetcher retrieves and extracts structured tuples for one query.
// An empty FetchResult with a nil error means the markup held no
// matching data; network failures are returned as *NetworkError.
type Fetcher interface {
	Fetch(ctx context.Context, query Query) (FetchResult, error)
}

// Store persists extraction tuples with full provenance.
type Store interface {
	// Persist writes one Source row, one upserted Personality and one
	// SociotypeLabel per tuple, each tuple in its own transaction.
	Persist(ctx context.Context, results []ExtractionResult, prov Provenance) (PersistReport, error)

	// HasPersonality reports whether a personality with the given
	// canonical name already exists.
	HasPersonality(ctx context.Context, canonicalName string) (bool, error)
}

// BlobStore writes raw page artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run summaries to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for archive keys and integrity metadata.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces row IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
