package csrf

import (
	"context"
	"time"
)

// Record is one registered token.
type Record struct {
	Token    string
	IssuedAt time.Time

	// Fingerprint is the keyed digest of the client fingerprint supplied at
	// registration, empty when none was given.
	Fingerprint string

	Used bool
}

// TokenStore holds registry records. Implementations must be safe for
// concurrent use.
type TokenStore interface {
	// Get returns the record for token and whether it exists.
	Get(ctx context.Context, token string) (Record, bool, error)

	// Insert adds rec unless a record for the same token already exists,
	// used or not. It reports whether rec was stored. Existing records are
	// never overwritten.
	Insert(ctx context.Context, rec Record) (bool, error)

	// Delete removes the given tokens. Unknown tokens are ignored.
	Delete(ctx context.Context, tokens ...string) error

	// MarkUsed atomically flips Used on a record issued at or after
	// issuedAfter. It reports false when the record is missing, already used
	// or too old. At most one caller can ever observe true for a token.
	MarkUsed(ctx context.Context, token string, issuedAfter time.Time) (bool, error)

	// List returns a snapshot of every record.
	List(ctx context.Context) ([]Record, error)

	// Len returns the number of records.
	Len(ctx context.Context) (int, error)
}
