package connection

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// StreamEvent is one server-sent event frame.
type StreamEvent struct {
	ID   string
	Type string
	Data []byte
}

// Stream opens a server-sent event stream at path and calls fn for each
// frame until ctx is done, the server closes the stream or fn fails.
// The request is made without the client timeout.
func (c *HTTPClient) Stream(ctx context.Context, path string, fn func(StreamEvent) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	hc := *c.client
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return ParseResponse(resp, nil)
	}
	defer resp.Body.Close()

	var (
		ev      StreamEvent
		data    strings.Builder
		hasData bool
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if hasData {
				ev.Data = []byte(data.String())
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, hasData = StreamEvent{}, false
			data.Reset()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			ev.ID = value
		case "event":
			ev.Type = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
