package ledger

import "context"

// Store is the durable append-only message log behind the cache. It is the
// source of truth: the cache may be trimmed or lost at any time and the
// ledger rehydrates from here.
type Store interface {
	// AppendTx writes the message and the session bookkeeping in one
	// transaction, assigning the next sequence number. Either everything
	// commits or nothing is recorded.
	AppendTx(ctx context.Context, sessionID string, msg Message) (Message, error)
	// Recent returns the most recent limit messages in ascending seq order.
	// limit <= 0 returns the full history.
	Recent(ctx context.Context, sessionID string, limit int) ([]Message, error)
	// RangeBySeq returns messages with fromSeq <= seq <= toSeq, ascending.
	RangeBySeq(ctx context.Context, sessionID string, fromSeq, toSeq int64) ([]Message, error)
	// Count returns the number of recorded messages for the session.
	Count(ctx context.Context, sessionID string) (int64, error)
	// Session returns session metadata, or (nil, nil) when unknown.
	Session(ctx context.Context, sessionID string) (*Session, error)
	// UpdateSummary persists the session's rolling summary text.
	UpdateSummary(ctx context.Context, sessionID, summary string) error
	// Clear hard-deletes the session and all its messages. This is the only
	// deletion path.
	Clear(ctx context.Context, sessionID string) error
	// Close releases the underlying resources.
	Close() error
}
