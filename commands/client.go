package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mobile-next/omniclick/server"
	"github.com/mobile-next/omniclick/utils"
)

const defaultClientTimeout = 10 * time.Second

// ErrServerNotRunning is returned when nothing listens on the bridge address.
var ErrServerNotRunning = errors.New("server is not running")

// RemoteError is a JSON-RPC error returned by the bridge.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *RemoteError) Error() string {
	if e.Data == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Data)
}

// Client talks JSON-RPC to a running bridge server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(addr, token string) *Client {
	return &Client{
		baseURL: BaseURL(addr),
		token:   token,
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
}

// BaseURL turns a listen address ("12000", ":12000", "host:12000") into a
// URL the client can dial.
func BaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}

	// if no colon, assume it's a bare port number
	if !strings.Contains(addr, ":") {
		if _, err := strconv.Atoi(addr); err == nil {
			addr = ":" + addr
		}
	}

	// if address starts with colon, prepend localhost
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	return "http://" + addr
}

// Call invokes method and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		raw = data
	}

	body, err := json.Marshal(server.JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  raw,
		ID:      uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	utils.Verbose("-> %s %s", method, string(raw))

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w on %s", ErrServerNotRunning, c.baseURL)
		}
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned error: %s", resp.Status)
	}

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  *RemoteError    `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}

	utils.Verbose("<- %s %s", method, string(out.Result))
	return out.Result, nil
}

// call wraps Call into a CommandResponse with the result decoded generically.
func (c *Client) call(ctx context.Context, method string, params interface{}) *CommandResponse {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("%s failed: %w", method, err))
	}

	var data interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return NewErrorResponse(fmt.Errorf("%s: invalid result: %w", method, err))
		}
	}
	return NewSuccessResponse(data)
}
