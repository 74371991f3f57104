package restconf

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Event is one message from a RESTCONF notification stream. Either Data
// holds a complete event payload or Comment holds a keep-alive line.
type Event struct {
	Data    string
	Comment string
}

// Stream subscribes to /restconf/streams/<name>/json and delivers decoded
// server-sent events on the channel until the context is canceled or the
// server closes the stream. The channel is closed on return.
func (c *Client) Stream(ctx context.Context, stream string, events chan<- Event) error {
	defer close(events)

	url := fmt.Sprintf("%s://%s/restconf/streams/%s/json", c.scheme, c.opts.Host, stream)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.opts.NoCompression {
		// Prevent NSO from gzipping data and delaying delivery of events.
		req.Header.Set("Accept-Encoding", "identity")
	}
	req.SetBasicAuth(c.opts.Username, c.opts.Password)

	// the overall request timeout would sever a long lived stream, the
	// context bounds it instead
	hc := *c.hc
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "could not subscribe to stream %q", stream)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("stream %q subscription failed with status %d", stream, resp.StatusCode)
	}

	var data strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			// a blank line ends the event
			if data.Len() > 0 {
				select {
				case events <- Event{Data: data.String()}:
				case <-ctx.Done():
					return ctx.Err()
				}
				data.Reset()
			}
		case strings.HasPrefix(line, "data: "):
			data.WriteString(line[len("data: "):])
		case strings.HasPrefix(line, ":"):
			// NSO may report device-notifications temporarily unavailable
			// as an SSE comment
			select {
			case events <- Event{Comment: line}:
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			return errors.Errorf("unhandled event encoding on stream %q: %q", stream, line)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(err, "stream %q read failed", stream)
	}
	return nil
}
