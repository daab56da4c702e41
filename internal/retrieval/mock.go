package retrieval

import (
	"context"
	"sync"
)

// MockClient is an in-memory Client for tests. It records the requests it
// receives and serves canned responses, or a fixed error.
type MockClient struct {
	mu       sync.Mutex
	Requests []SearchRequest
	// Respond computes the response for a request. When nil, Games/Err are
	// returned as-is.
	Respond func(req SearchRequest) (*SearchResponse, error)
	Games   []Game
	Err     error
}

// Search implements Client.
func (m *MockClient) Search(_ context.Context, req SearchRequest) (*SearchResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Respond != nil {
		return m.Respond(req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	games := make([]Game, len(m.Games))
	copy(games, m.Games)
	return &SearchResponse{Games: games, Total: len(games)}, nil
}

// LastRequest returns the most recent request, or a zero value when none
// were made.
func (m *MockClient) LastRequest() SearchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return SearchRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}
