package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Client searches the retrieval backend. The HTTP implementation is the only
// place in a turn where real I/O latency occurs, so every call takes a
// context and honours its deadline.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// HTTPClient talks to the retrieval backend over its JSON API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewHTTPClient creates a backend client. timeout bounds a single search
// round trip; zero means 15s.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Search posts the query and compiled filter tree and decodes the ranked
// items. Responses are navigated with gjson so that unknown extra fields from
// newer backend versions never break decoding.
func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()
	body, err := encodeSearchRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("retrieval backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("retrieval backend read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(payload, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("retrieval backend status %d: %s", resp.StatusCode, msg)
	}

	out := &SearchResponse{
		Total: int(gjson.GetBytes(payload, "total").Int()),
		Took:  time.Since(start),
	}
	games := gjson.GetBytes(payload, "games")
	games.ForEach(func(_, item gjson.Result) bool {
		out.Games = append(out.Games, decodeGame(item))
		return true
	})
	if out.Total == 0 {
		out.Total = len(out.Games)
	}
	log.Debugf("retrieval search kind=%s hits=%d total=%d took=%s", req.Kind, len(out.Games), out.Total, out.Took.Truncate(time.Millisecond))
	return out, nil
}

// encodeSearchRequest builds the request body field by field, so optional
// parts are omitted instead of sent as JSON zero values the backend might
// misread.
func encodeSearchRequest(req SearchRequest) ([]byte, error) {
	body := "{}"
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		body, err = sjson.Set(body, path, value)
	}

	set("query", req.Query)
	set("kind", req.Kind)
	if req.Filter != nil && len(req.Filter.Must) > 0 {
		var raw []byte
		raw, err = json.Marshal(req.Filter)
		if err == nil {
			body, err = sjson.SetRaw(body, "filter", string(raw))
		}
	}
	if req.Limit > 0 {
		set("limit", req.Limit)
	}
	if req.Offset > 0 {
		set("offset", req.Offset)
	}
	if req.FEN != "" {
		set("fen", req.FEN)
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func decodeGame(item gjson.Result) Game {
	g := Game{
		ID:            item.Get("id").String(),
		White:         item.Get("white").String(),
		Black:         item.Get("black").String(),
		WhiteTitle:    item.Get("white_title").String(),
		BlackTitle:    item.Get("black_title").String(),
		WhiteElo:      int(item.Get("white_elo").Int()),
		BlackElo:      int(item.Get("black_elo").Int()),
		Result:        item.Get("result").String(),
		ECO:           item.Get("eco").String(),
		Opening:       item.Get("opening").String(),
		Variation:     item.Get("variation").String(),
		Event:         item.Get("event").String(),
		EventCategory: item.Get("event_category").String(),
		Site:          item.Get("site").String(),
		Round:         item.Get("round").String(),
		Year:          int(item.Get("year").Int()),
		PlyCount:      int(item.Get("ply_count").Int()),
		TimeControl:   item.Get("time_control").String(),
		FEN:           item.Get("fen").String(),
		Phase:         item.Get("phase").String(),
		Score:         item.Get("score").Float(),
	}
	if raw := item.Get("date").String(); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			g.Date = t
		} else if t, err := time.Parse(time.RFC3339, raw); err == nil {
			g.Date = t
		}
	}
	if g.Year == 0 && !g.Date.IsZero() {
		g.Year = g.Date.Year()
	}
	return g
}
