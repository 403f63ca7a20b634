// Package devicekit talks to the on-device agent that hosts the overlay
// windows and injects gestures. Requests are JSON-RPC 2.0 over a single
// websocket; the agent also pushes notifications (raw touches) on it.
package devicekit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mobile-next/omniclick/utils"
)

// NotificationHandler receives agent-initiated messages, which carry a method
// and no id.
type NotificationHandler func(method string, params json.RawMessage)

type Client struct {
	httpURL    string
	wsURL      string
	httpClient *http.Client
	requestID  atomic.Int64

	mu       sync.Mutex
	conn     *websocket.Conn
	pending  map[int64]chan jsonRPCResponse
	closeErr error
	notify   NotificationHandler

	apiOnce  sync.Once
	apiLevel int
}

func NewClient(hostname string, port int) *Client {
	httpURL := fmt.Sprintf("http://%s:%d", hostname, port)
	wsURL := fmt.Sprintf("ws://%s:%d", hostname, port)

	return &Client{
		httpURL: httpURL,
		wsURL:   wsURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pending: make(map[int64]chan jsonRPCResponse),
	}
}

// OnNotification sets the handler for agent notifications. It is called from
// the read loop and must not block.
func (c *Client) OnNotification(h NotificationHandler) {
	c.mu.Lock()
	c.notify = h
	c.mu.Unlock()
}

// Connect opens the websocket if it is not open yet. Calls connect lazily;
// this is for callers that want notifications before the first request.
func (c *Client) Connect() error {
	return c.connect()
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	url := fmt.Sprintf("%s/rpc", c.wsURL)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to DeviceKit WebSocket: %w", err)
	}

	c.conn = conn
	c.closeErr = nil
	go c.readLoop(conn)

	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var resp jsonRPCResponse
		err := conn.ReadJSON(&resp)
		if err != nil {
			c.mu.Lock()
			c.closeErr = err
			if c.conn == conn {
				c.conn = nil
			}
			for _, ch := range c.pending {
				close(ch)
			}
			c.pending = make(map[int64]chan jsonRPCResponse)
			c.mu.Unlock()
			return
		}

		if resp.Method != "" {
			c.mu.Lock()
			notify := c.notify
			c.mu.Unlock()
			if notify != nil {
				notify(resp.Method, resp.Params)
			} else {
				utils.Verbose("DeviceKit notification %s dropped, no handler", resp.Method)
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan jsonRPCResponse)
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	return err
}

func (c *Client) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.httpURL)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for DeviceKit to be ready")
		case <-ticker.C:
			err := c.HealthCheck(ctx)
			if err != nil {
				utils.Verbose("DeviceKit not ready yet: %v", err)
				continue
			}
			utils.Verbose("DeviceKit is ready!")
			return nil
		}
	}
}
