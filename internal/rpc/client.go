package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned for calls made after the connection shut down.
var ErrClosed = errors.New("rpc connection closed")

// InitializeResult is the server's answer to the initialize handshake.
type InitializeResult struct {
	ServerInfo struct {
		Name    string `json:"name,omitempty"`
		Version string `json:"version,omitempty"`
	} `json:"serverInfo"`
	Capabilities struct {
		Commands []string `json:"commands,omitempty"`
	} `json:"capabilities"`
}

// Client speaks the request/response protocol over a duplex byte
// channel, usually the spawned server's stdio. One read loop dispatches
// responses to pending calls; server notifications are dropped.
type Client struct {
	w io.Writer
	c io.Closer

	mu      sync.Mutex
	seq     int64
	pending map[int64]chan *response
	closed  bool
	done    chan struct{}
}

// NewClient wraps the byte channel and starts the read loop. closer is
// closed (once) when the client shuts down; pass the process stdin so a
// close also signals EOF to the server.
func NewClient(r io.Reader, w io.Writer, closer io.Closer) *Client {
	c := &Client{
		w:       w,
		c:       closer,
		pending: map[int64]chan *response{},
		done:    make(chan struct{}),
	}
	go c.readLoop(bufio.NewReader(r))
	return c
}

func (c *Client) readLoop(r *bufio.Reader) {
	defer c.Close()
	for {
		resp, err := readFrame(r)
		if err != nil {
			return
		}
		if resp.ID == nil {
			// Server-initiated notification; nothing here consumes them.
			continue
		}
		c.mu.Lock()
		ch := c.pending[*resp.ID]
		delete(c.pending, *resp.ID)
		c.mu.Unlock()
		if ch != nil {
			ch <- resp
		}
	}
}

// Call issues a request and decodes the result into out (when non-nil).
func (c *Client) Call(ctx context.Context, method string, params, out interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.seq++
	id := c.seq
	ch := make(chan *response, 1)
	c.pending[id] = ch
	err := writeFrame(c.w, &request{JSONRPC: "2.0", ID: &id, Method: method, Params: params})
	c.mu.Unlock()
	if err != nil {
		c.forget(id)
		return err
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out != nil && len(resp.Result) > 0 {
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	}
}

// Notify issues a fire-and-forget notification.
func (c *Client) Notify(method string, params interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return writeFrame(c.w, &request{JSONRPC: "2.0", Method: method, Params: params})
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close tears the connection down and fails all pending calls.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.pending = map[int64]chan *response{}
	c.mu.Unlock()
	if c.c != nil {
		return c.c.Close()
	}
	return nil
}

// Initialize performs the handshake and returns the advertised commands.
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	var result InitializeResult
	params := map[string]interface{}{"clientInfo": map[string]string{"name": "ansup"}}
	if err := c.Call(ctx, "initialize", params, &result); err != nil {
		return nil, err
	}
	if err := c.Notify("initialized", struct{}{}); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown performs the shutdown exchange followed by the exit
// notification.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.Call(ctx, "shutdown", nil, nil); err != nil {
		return err
	}
	return c.Notify("exit", nil)
}

// ExecuteCommand forwards a server-advertised command and returns its
// result verbatim.
func (c *Client) ExecuteCommand(ctx context.Context, command string) (json.RawMessage, error) {
	var result json.RawMessage
	params := map[string]interface{}{"command": command}
	if err := c.Call(ctx, "workspace/executeCommand", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Ping issues the lightweight liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.Call(ctx, "ansup/ping", nil, nil)
}
