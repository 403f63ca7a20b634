package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mobile-next/omniclick/engine"
	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/utils"
)

// Notification methods pushed to websocket clients.
const (
	NotifyFilePicked      = "onFilePicked"
	NotifyTouch           = "onTouch"
	NotifyPassthroughDone = "onPassthroughDone"
)

// sendQueueSize bounds the messages waiting for a slow client. A client
// that falls this far behind is disconnected.
const sendQueueSize = 64

var errSendQueueFull = errors.New("websocket send queue full")

// wsConnection owns one client socket. Writes go through send and are
// performed by writePump, so no caller blocks on the network.
type wsConnection struct {
	conn      *websocket.Conn
	send      chan interface{}
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConnection(conn *websocket.Conn) *wsConnection {
	return &wsConnection{
		conn: conn,
		send: make(chan interface{}, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (wsc *wsConnection) writePump() {
	for {
		select {
		case v := <-wsc.send:
			_ = wsc.conn.SetWriteDeadline(deadline())
			if err := wsc.conn.WriteJSON(v); err != nil {
				utils.Verbose("WebSocket write failed: %v", err)
				wsc.close()
				return
			}
		case <-wsc.done:
			return
		}
	}
}

func (wsc *wsConnection) close() {
	wsc.closeOnce.Do(func() {
		close(wsc.done)
		_ = wsc.conn.Close()
	})
}

// Hub fans engine callbacks out to every connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsConnection]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsConnection]struct{})}
}

func (h *Hub) add(c *wsConnection) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsConnection) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify queues a JSON-RPC notification for every client and never blocks.
// A client whose queue is full or whose socket failed is dropped.
func (h *Hub) Notify(method string, params interface{}) {
	h.mu.Lock()
	clients := make([]*wsConnection, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	msg := JSONRPCNotification{JSONRPC: "2.0", Method: method, Params: params}
	for _, c := range clients {
		if err := c.sendJSON(msg); err != nil {
			utils.Verbose("dropping websocket client after %s: %v", method, err)
			h.remove(c)
		}
	}
}

func (h *Hub) FilePicked(slot, fileName, content string) {
	h.Notify(NotifyFilePicked, map[string]string{
		"slot":     slot,
		"fileName": fileName,
		"content":  content,
	})
}

func (h *Hub) Touch(ev engine.TouchEvent) {
	h.Notify(NotifyTouch, ev)
}

func (h *Hub) passthroughDone(r gesture.Result) {
	h.Notify(NotifyPassthroughDone, newGestureResult(r))
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline())
		c.close()
		delete(h.clients, c)
	}
}

func newUpgrader(enableCORS bool) *websocket.Upgrader {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if enableCORS {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	} else {
		upgrader.CheckOrigin = isSameOrigin
	}

	return &upgrader
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := newUpgrader(s.opts.CORS).Upgrade(w, r, nil)
	if err != nil {
		utils.Warn("WebSocket upgrade failed: %v", err)
		return
	}
	wsConn := newWSConnection(conn)
	defer wsConn.close()
	go wsConn.writePump()

	s.hub.add(wsConn)
	defer s.hub.remove(wsConn)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			// connection closed or error
			utils.Verbose("WebSocket connection closed: %v", err)
			break
		}

		if messageType != websocket.TextMessage {
			_ = wsConn.sendError(nil, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgTextOnly)
			continue
		}

		// handled in arrival order; only a waiting passthrough replies later
		s.handleWSMessage(r, wsConn, message)
	}
}

func isSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return originURL.Host == r.Host
}

func (s *Server) handleWSMessage(r *http.Request, wsConn *wsConnection, message []byte) {
	var req JSONRPCRequest
	if err := json.Unmarshal(message, &req); err != nil {
		_ = wsConn.sendError(nil, ErrCodeParseError, errTitleParseError, errMsgParseError)
		return
	}

	if rerr := validateJSONRPCRequest(req); rerr != nil {
		_ = wsConn.sendError(req.ID, rerr.code, rerr.message, rerr.data)
		return
	}

	utils.Verbose("WebSocket Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	result, rerr := s.execute(r.Context(), req.Method, req.Params)
	if rerr != nil {
		_ = wsConn.sendError(req.ID, rerr.code, rerr.message, rerr.data)
		return
	}

	if _, pending := result.(*pendingResult); pending {
		go func() {
			out, rerr := resolve(r.Context(), req.Method, result)
			if rerr != nil {
				_ = wsConn.sendError(req.ID, rerr.code, rerr.message, rerr.data)
				return
			}
			_ = wsConn.sendResponse(req.ID, out)
		}()
		return
	}

	_ = wsConn.sendResponse(req.ID, result)
}

func (wsc *wsConnection) sendResponse(id interface{}, result interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendError(id interface{}, code int, message string, data interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendJSON(v interface{}) error {
	select {
	case <-wsc.done:
		return websocket.ErrCloseSent
	default:
	}

	select {
	case wsc.send <- v:
		return nil
	default:
		wsc.close()
		return errSendQueueFull
	}
}
