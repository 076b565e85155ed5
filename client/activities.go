package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Activity is one entry of the activity log, as listed or streamed.
type Activity struct {
	ID          int64          `json:"id,omitempty"`
	Kind        string         `json:"kind"`
	Network     string         `json:"network"`
	Address     string         `json:"address"`
	Signature   string         `json:"signature,omitempty"`
	Lamports    int64          `json:"lamports"`
	ExplorerURL string         `json:"explorer_url,omitempty"`
	Detail      map[string]any `json:"detail,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ListActivitiesOptions filters the activity log. Zero values use server defaults.
type ListActivitiesOptions struct {
	Address string
	Limit   int
	Offset  int
}

// ListActivities returns activity log entries, newest first.
func (c *Client) ListActivities(ctx context.Context, opts ListActivitiesOptions) ([]*Activity, error) {
	q := url.Values{}
	if opts.Address != "" {
		q.Set("address", opts.Address)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	path := "/api/v1/activities"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Activities []*Activity `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Activities, nil
}

// Await streams activity events of kind (all kinds when empty) and returns the
// first one matcher accepts. It blocks until a match, ctx is done, or the
// stream ends.
func (c *Client) Await(ctx context.Context, kind string, matcher func(*Activity) bool) (*Activity, error) {
	path := "/api/v1/stream/activities"
	if kind != "" {
		path += "/" + url.PathEscape(kind)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives any client timeout; ctx bounds it instead.
	streamClient := *c.httpClient
	streamClient.Timeout = 0
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			event = ""
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if event != "" && event != "activity" {
				continue
			}
			var a Activity
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &a); err != nil {
				c.logger.Warn("failed to parse activity event", "error", err)
				continue
			}
			if matcher == nil || matcher(&a) {
				return &a, nil
			}
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream failed: %w", err)
	}
	return nil, fmt.Errorf("stream closed before a matching activity arrived")
}
