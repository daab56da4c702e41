// Package ledger is the session ledger: a hybrid of a bounded per-session
// cache and a durable append-only message log. The cache serves the hot
// conversation tail; the log is the source of truth and rehydrates the cache
// on a miss. Appends are transactional: a message is either fully committed
// or not recorded at all.
package ledger

import (
	"encoding/json"
	"time"

	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ResultSetAttachment records a result set attached to an assistant message,
// together with its provenance: what kind of search produced it, the counts
// before and after filtering, and the filter summary that was applied.
type ResultSetAttachment struct {
	// Kind is the search kind that produced the set: "text" or "position".
	Kind string `json:"kind"`
	// Query is the free-text query sent to the backend, if any.
	Query string `json:"query,omitempty"`
	// OriginalCount is the size of the set before filtering.
	OriginalCount int `json:"original_count"`
	// FilteredCount is the size after filtering.
	FilteredCount int `json:"filtered_count"`
	// Filters is the compact summary of the applied filter spec.
	Filters string `json:"filters,omitempty"`
	// Items are the retrieved games, each carrying every filterable field.
	Items []retrieval.Game `json:"items"`
}

// Message is one entry of a session's ordered history. Messages are owned by
// their session and immutable once written.
type Message struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	// Seq is unique and strictly increasing within a session.
	Seq       int64             `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	// ResultSet is present on assistant messages that carried search results.
	ResultSet *ResultSetAttachment `json:"result_set,omitempty"`
}

// Session is a logical conversation thread.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Summary is the optional rolling summary of the conversation so far.
	Summary string `json:"summary,omitempty"`
}

// encodeMessage serializes a message for the cache list.
func encodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// decodeMessage is the inverse of encodeMessage.
func decodeMessage(b []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(b, &m)
	return m, err
}
