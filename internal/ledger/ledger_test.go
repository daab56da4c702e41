package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

func newTestLedger(t *testing.T, cfg Config) (*Ledger, *SQLiteStore, *MemoryCache) {
	t.Helper()
	store, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cache := NewMemoryCache(nil)
	return New(store, cache, cfg), store, cache
}

// TestAppendHistoryRoundtrip tests that appended messages come back from
// History with identical content and strictly increasing sequence numbers.
func TestAppendHistoryRoundtrip(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, "s1", Message{
			Role:     RoleUser,
			Content:  fmt.Sprintf("utterance %d", i),
			Metadata: map[string]string{"lang": "en"},
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	msgs, err := l.History(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 5 {
		t.Fatalf("history returned %d messages, want 5", len(msgs))
	}
	var prev int64
	for i, m := range msgs {
		if m.Content != fmt.Sprintf("utterance %d", i) {
			t.Errorf("message %d content = %q", i, m.Content)
		}
		if m.Seq <= prev {
			t.Errorf("seq not strictly increasing: %d after %d", m.Seq, prev)
		}
		if m.Metadata["lang"] != "en" {
			t.Errorf("message %d lost metadata", i)
		}
		prev = m.Seq
	}
}

// TestCacheTrimAtCapacity tests that appending capacity+1 messages leaves
// exactly capacity in the cache while the durable log keeps all of them.
func TestCacheTrimAtCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheCapacity = 10
	l, store, cache := newTestLedger(t, cfg)
	ctx := context.Background()

	for i := 0; i < cfg.CacheCapacity+1; i++ {
		if _, err := l.Append(ctx, "s1", Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := cache.Len(ctx, cacheKey("s1"))
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(cfg.CacheCapacity) {
		t.Errorf("cache holds %d entries, want %d", n, cfg.CacheCapacity)
	}
	count, err := store.Count(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(cfg.CacheCapacity+1) {
		t.Errorf("store holds %d messages, want %d", count, cfg.CacheCapacity+1)
	}

	// The trimmed head entry is still served, via rehydration-free log read
	// of the full range.
	all, err := store.Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Content != "m0" {
		t.Errorf("oldest durable message = %q, want m0", all[0].Content)
	}
}

// TestHistoryRehydratesAfterCacheLoss tests the cache-miss path: dropping
// the cached list must not lose history.
func TestHistoryRehydratesAfterCacheLoss(t *testing.T) {
	l, _, cache := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Append(ctx, "s1", Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := cache.Del(ctx, cacheKey("s1")); err != nil {
		t.Fatal(err)
	}

	msgs, err := l.History(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("history after cache loss returned %d messages, want 3", len(msgs))
	}
	if n, _ := cache.Len(ctx, cacheKey("s1")); n != 3 {
		t.Errorf("cache not rehydrated, holds %d", n)
	}
}

// TestLastResultSetLookback tests that the scan finds the most recent
// attached result set inside the window and nothing outside it.
func TestLastResultSetLookback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lookback = 4
	l, _, _ := newTestLedger(t, cfg)
	ctx := context.Background()

	attach := &ResultSetAttachment{
		Kind:          retrieval.KindText,
		OriginalCount: 2,
		FilteredCount: 2,
		Items:         []retrieval.Game{{ID: "g1"}, {ID: "g2"}},
	}
	if _, err := l.Append(ctx, "s1", Message{Role: RoleAssistant, Content: "results", ResultSet: attach}); err != nil {
		t.Fatal(err)
	}

	rs, ok, err := l.LastResultSet(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected result set inside window, ok=%v err=%v", ok, err)
	}
	if len(rs.Items) != 2 || rs.Items[0].ID != "g1" {
		t.Errorf("result set items round-tripped wrong: %+v", rs.Items)
	}

	// Push the attachment out of the lookback window.
	for i := 0; i < cfg.Lookback; i++ {
		if _, err := l.Append(ctx, "s1", Message{Role: RoleUser, Content: fmt.Sprintf("chatter %d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	_, ok, err = l.LastResultSet(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("result set outside the lookback window must not be found")
	}
}

// TestLastResultSetMissing tests the no-prior-results case returns a clean
// not-found, never an error.
func TestLastResultSetMissing(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	_, ok, err := l.LastResultSet(context.Background(), "fresh-session")
	if err != nil {
		t.Fatalf("missing result set must not error: %v", err)
	}
	if ok {
		t.Error("expected no result set")
	}
}

// TestSessionBookkeeping tests session creation on first append and
// updated-at bumping on every append.
func TestSessionBookkeeping(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store, err := NewSQLiteStore(":memory:", clock)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()
	l := New(store, NewMemoryCache(nil), DefaultConfig())
	ctx := context.Background()

	if _, err := l.Append(ctx, "s1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	sess, err := l.Session(ctx, "s1")
	if err != nil || sess == nil {
		t.Fatalf("session not created: %v", err)
	}
	created := sess.CreatedAt

	now = now.Add(5 * time.Minute)
	if _, err := l.Append(ctx, "s1", Message{Role: RoleAssistant, Content: "hello"}); err != nil {
		t.Fatal(err)
	}
	sess, err = l.Session(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !sess.CreatedAt.Equal(created) {
		t.Error("created_at must not change on append")
	}
	if !sess.UpdatedAt.After(created) {
		t.Error("updated_at must be bumped on append")
	}
}

// TestClearRemovesEverything tests the explicit clear path.
func TestClearRemovesEverything(t *testing.T) {
	l, store, cache := newTestLedger(t, DefaultConfig())
	ctx := context.Background()
	if _, err := l.Append(ctx, "s1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Clear(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if count, _ := store.Count(ctx, "s1"); count != 0 {
		t.Error("store not cleared")
	}
	if n, _ := cache.Len(ctx, cacheKey("s1")); n != 0 {
		t.Error("cache not cleared")
	}
	if sess, _ := store.Session(ctx, "s1"); sess != nil {
		t.Error("session row not cleared")
	}
}

// TestUpdateSummary tests the rolling summary persistence.
func TestUpdateSummary(t *testing.T) {
	l, _, _ := newTestLedger(t, DefaultConfig())
	ctx := context.Background()
	if _, err := l.Append(ctx, "s1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := l.UpdateSummary(ctx, "s1", "user is browsing Najdorf games"); err != nil {
		t.Fatal(err)
	}
	sess, err := l.Session(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Summary != "user is browsing Najdorf games" {
		t.Errorf("summary = %q", sess.Summary)
	}
	if err := l.UpdateSummary(ctx, "no-such-session", "x"); err == nil {
		t.Error("summary update for unknown session should fail")
	}
}

// TestConcurrentAppendsSameSession tests that racing appends to one session
// keep sequence numbers unique and the cache bounded.
func TestConcurrentAppendsSameSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheCapacity = 8
	l, store, cache := newTestLedger(t, cfg)
	ctx := context.Background()

	const workers = 4
	const perWorker = 5
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := l.Append(ctx, "s1", Message{Role: RoleUser, Content: fmt.Sprintf("w%d-%d", w, i)}); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	count, err := store.Count(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if count != workers*perWorker {
		t.Fatalf("store holds %d messages, want %d", count, workers*perWorker)
	}
	all, err := store.Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int64]bool{}
	for _, m := range all {
		if seen[m.Seq] {
			t.Fatalf("duplicate seq %d", m.Seq)
		}
		seen[m.Seq] = true
	}
	if n, _ := cache.Len(ctx, cacheKey("s1")); n != int64(cfg.CacheCapacity) {
		t.Errorf("cache holds %d, want %d", n, cfg.CacheCapacity)
	}
}
