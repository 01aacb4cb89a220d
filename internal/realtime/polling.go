package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// pollingTransport is the HTTP long-polling fallback.
//
// GET  {url}?transport=polling[&sid=...] returns a JSON array of frames.
// POST {url}?transport=polling&sid=...   carries one frame.
//
// The first GET (no sid) returns the connect frame that names the session.
type pollingTransport struct {
	client       *http.Client
	writeTimeout time.Duration
	idleDelay    time.Duration // pause after a poll that returned no frames
}

func (t *pollingTransport) Name() string { return TransportPolling }

func (t *pollingTransport) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	client := t.client
	if client == nil {
		client = &http.Client{}
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &pollConn{
		client:       client,
		endpoint:     endpoint,
		header:       header.Clone(),
		writeTimeout: t.writeTimeout,
		idleDelay:    t.idleDelay,
		ctx:          connCtx,
		cancel:       cancel,
	}

	frames, err := c.poll(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	c.enqueue(frames)

	return c, nil
}

type pollConn struct {
	client       *http.Client
	endpoint     string
	header       http.Header
	writeTimeout time.Duration
	idleDelay    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	sid     string
	pending []Frame
}

func (c *pollConn) Transport() string { return TransportPolling }

func (c *pollConn) ReadFrame() (Frame, error) {
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			f := c.pending[0]
			c.pending = c.pending[1:]
			c.mu.Unlock()
			return f, nil
		}
		c.mu.Unlock()

		if c.ctx.Err() != nil {
			return Frame{}, ErrConnClosed
		}

		frames, err := c.poll(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return Frame{}, ErrConnClosed
			}
			return Frame{}, err
		}
		if len(frames) == 0 && c.idleDelay > 0 {
			select {
			case <-c.ctx.Done():
				return Frame{}, ErrConnClosed
			case <-time.After(c.idleDelay):
			}
			continue
		}
		c.enqueue(frames)
	}
}

func (c *pollConn) WriteFrame(f Frame) error {
	if c.ctx.Err() != nil {
		return ErrConnClosed
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	target, err := endpointFor(c.endpoint, TransportPolling, c.sessionID())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.applyHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post frame: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post frame: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *pollConn) Close() error {
	c.cancel()
	return nil
}

func (c *pollConn) poll(ctx context.Context) ([]Frame, error) {
	target, err := endpointFor(c.endpoint, TransportPolling, c.sessionID())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.applyHeaders(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read poll response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}

	var frames []Frame
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &frames); err != nil {
			return nil, fmt.Errorf("decode poll response: %w", err)
		}
	}
	return frames, nil
}

// enqueue buffers frames and learns the session id from the connect frame.
func (c *pollConn) enqueue(frames []Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range frames {
		if f.Event == "" {
			continue
		}
		if f.Event == EventConnect && c.sid == "" {
			c.sid = gjson.GetBytes(f.Data, "sid").String()
		}
		c.pending = append(c.pending, f)
	}
}

func (c *pollConn) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

func (c *pollConn) applyHeaders(req *http.Request) {
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
