package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mobile-next/omniclick/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data"`
	} `json:"error"`
	ID interface{} `json:"id"`
}

func connectWebSocket(t *testing.T, b *bridge, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(b.wsURL, header)
	require.NoError(t, err, "should connect to WebSocket")
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return b.hub.Clients() > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg), "should read message")
	return msg
}

// readNotification skips responses until a notification for method arrives.
func readNotification(t *testing.T, conn *websocket.Conn, method string) wsMessage {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Method == method {
			return msg
		}
	}
}

func readResponse(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Method == "" {
			return msg
		}
	}
}

func TestWebSocket_ValidRequest(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	require.NoError(t, conn.WriteJSON(JSONRPCRequest{JSONRPC: "2.0", Method: "status", ID: 7}))
	resp := readResponse(t, conn)

	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, 7, int(resp.ID.(float64)))
	assert.Nil(t, resp.Error)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, float64(1), result["clients"])
}

func TestWebSocket_InvalidRequests(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	tests := []struct {
		name string
		req  JSONRPCRequest
		data string
	}{
		{"wrong version", JSONRPCRequest{JSONRPC: "1.0", Method: "status", ID: 1}, errMsgInvalidJSONRPC},
		{"missing id", JSONRPCRequest{JSONRPC: "2.0", Method: "status"}, errMsgIDRequired},
		{"missing method", JSONRPCRequest{JSONRPC: "2.0", ID: 1}, errMsgMethodRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.req))
			resp := readResponse(t, conn)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
			assert.Equal(t, tt.data, resp.Error.Data)
		})
	}
}

func TestWebSocket_ParseError(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{broken")))
	resp := readResponse(t, conn)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParseError, resp.Error.Code)
}

func TestWebSocket_BinaryMessageRejected(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte(`{"jsonrpc":"2.0"}`)))
	resp := readResponse(t, conn)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, errMsgTextOnly, resp.Error.Data)
}

func TestWebSocket_FilePickedNotification(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	require.NoError(t, conn.WriteJSON(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  "openFilePicker",
		Params:  json.RawMessage(`["macros"]`),
		ID:      1,
	}))

	msg := readNotification(t, conn, NotifyFilePicked)
	assert.Nil(t, msg.ID)

	var params map[string]string
	require.NoError(t, json.Unmarshal(msg.Params, &params))
	assert.Equal(t, "macros", params["slot"])
	assert.Equal(t, "macro.json", params["fileName"])
	assert.Equal(t, `{"steps":[]}`, params["content"])
}

func TestWebSocket_TouchNotification(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	// raw touches can arrive over HTTP from the platform side
	resp := b.call(t, "touchEvent", `{"action":"down","x":50,"y":80}`)
	require.Nil(t, resp.Error)

	msg := readNotification(t, conn, NotifyTouch)
	var ev struct {
		Action string  `json:"action"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	require.NoError(t, json.Unmarshal(msg.Params, &ev))
	assert.Equal(t, "down", ev.Action)
}

func TestWebSocket_PassthroughDoneNotification(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	require.NoError(t, conn.WriteJSON(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  "dispatchRecordedGesture",
		Params:  json.RawMessage(`{"x":10,"y":10}`),
		ID:      3,
	}))

	msg := readNotification(t, conn, NotifyPassthroughDone)
	var result gestureResult
	require.NoError(t, json.Unmarshal(msg.Params, &result))
	assert.Equal(t, "completed", result.Outcome)
}

func TestWebSocket_TokenRequired(t *testing.T) {
	b := newBridge(t, Options{Token: "abc"})

	_, resp, err := websocket.DefaultDialer.Dial(b.wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Authorization", "Bearer abc")
	conn := connectWebSocket(t, b, header)

	require.NoError(t, conn.WriteJSON(JSONRPCRequest{JSONRPC: "2.0", Method: "status", ID: 1}))
	assert.Nil(t, readResponse(t, conn).Error)
}

func TestWebSocket_CrossOriginRejectedWithoutCORS(t *testing.T) {
	b := newBridge(t, Options{})

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(b.wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_PipelinedCallsKeepOrder(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	// both frames go out before either reply is read
	require.NoError(t, conn.WriteJSON(JSONRPCRequest{JSONRPC: "2.0", Method: "reportOverlayRect", Params: json.RawMessage(`[0, 0, 400, 150]`), ID: 1}))
	require.NoError(t, conn.WriteJSON(JSONRPCRequest{JSONRPC: "2.0", Method: "performClick", Params: json.RawMessage(`[100, 200]`), ID: 2}))

	first := readResponse(t, conn)
	second := readResponse(t, conn)
	assert.Equal(t, float64(1), first.ID)
	assert.Equal(t, float64(2), second.ID)
	assert.Nil(t, second.Error)

	strokes := b.waitStrokes(t, 1)
	assert.Equal(t, types.Point{X: 300, Y: 450}, strokes[0].From)
}

func TestWebSocket_WaitingPassthroughDoesNotBlockLaterCalls(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	require.NoError(t, conn.WriteJSON(JSONRPCRequest{JSONRPC: "2.0", Method: "dispatchRecordedGesture", Params: json.RawMessage(`{"x":10,"y":10,"wait":true}`), ID: 1}))
	require.NoError(t, conn.WriteJSON(JSONRPCRequest{JSONRPC: "2.0", Method: "status", ID: 2}))

	// status answers while the passthrough is still settling
	assert.Equal(t, float64(2), readResponse(t, conn).ID)

	resp := readResponse(t, conn)
	assert.Equal(t, float64(1), resp.ID)
	require.Nil(t, resp.Error)

	var result gestureResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "completed", result.Outcome)
}

func TestHub_NotifyDoesNotBlockOnStalledClient(t *testing.T) {
	b := newBridge(t, Options{})
	_ = connectWebSocket(t, b, nil) // never reads

	payload := map[string]string{"blob": strings.Repeat("x", 64<<10)}
	start := time.Now()
	for i := 0; i < 8*sendQueueSize; i++ {
		b.hub.Notify(NotifyTouch, payload)
	}

	assert.Less(t, time.Since(start), writeWait/2)
	require.Eventually(t, func() bool { return b.hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseAll(t *testing.T) {
	b := newBridge(t, Options{})
	conn := connectWebSocket(t, b, nil)

	b.hub.CloseAll()
	assert.Equal(t, 0, b.hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestHub_NotifyWithoutClients(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() { hub.Notify(NotifyTouch, map[string]int{"x": 1}) })
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://bridge.local:12000", true},
		{"http://other:12000", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://bridge.local:12000/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, isSameOrigin(r), tt.origin)
	}
}
