package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const writeWait = 10 * time.Second

// HandlerFunc is the signature for JSON-RPC method handlers
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// paramError marks a failure the client caused by sending bad params.
type paramError struct {
	err error
}

func (e *paramError) Error() string {
	return e.err.Error()
}

func (e *paramError) Unwrap() error {
	return e.err
}

func invalidParams(format string, args ...interface{}) error {
	return &paramError{err: fmt.Errorf(format, args...)}
}

func deadline() time.Time {
	return time.Now().Add(writeWait)
}

// decodeParams fills dst from either a params object or a positional array.
// Positional values are matched to names in order.
func decodeParams(raw json.RawMessage, dst interface{}, names ...string) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if len(names) > 0 {
			return invalidParams("missing params, expecting %v", names)
		}
		return nil
	}

	if raw[0] == '[' {
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil {
			return invalidParams("invalid params: %v", err)
		}
		if len(positional) > len(names) {
			return invalidParams("too many params: got %d, expecting %v", len(positional), names)
		}

		obj := make(map[string]json.RawMessage, len(positional))
		for i, v := range positional {
			obj[names[i]] = v
		}

		var err error
		raw, err = json.Marshal(obj)
		if err != nil {
			return invalidParams("invalid params: %v", err)
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidParams("invalid params: %v", err)
	}
	return nil
}

func (s *Server) methodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"reportOverlayRect":       s.handleReportOverlayRect,
		"tap":                     s.handleTap,
		"performClick":            s.handlePerformClick,
		"swipe":                   s.handleSwipe,
		"performSwipe":            s.handlePerformSwipe,
		"dispatchRecordedGesture": s.handleDispatchRecordedGesture,
		"dispatchRecordedSwipe":   s.handleDispatchRecordedSwipe,
		"setRecordingMode":        s.handleSetRecordingMode,
		"setHudRect":              s.handleSetHudRect,
		"requestInputFocus":       s.handleRequestInputFocus,
		"clearInputFocus":         s.handleClearInputFocus,
		"openFilePicker":          s.handleOpenFilePicker,
		"saveFile":                s.handleSaveFile,
		"close":                   s.handleClose,
		"touchEvent":              s.handleTouchEvent,
		"status":                  s.handleStatus,
	}
}

// Methods lists the registered method names.
func (s *Server) Methods() []string {
	names := make([]string, 0, len(s.registry))
	for name := range s.registry {
		names = append(names, name)
	}
	return names
}

// Execute dispatches a method call in-process, bypassing the transports.
func (s *Server) Execute(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	result, rerr := s.execute(ctx, method, params)
	if rerr == nil {
		result, rerr = resolve(ctx, method, result)
	}
	if rerr != nil {
		return nil, fmt.Errorf("%s: %s", rerr.message, rerr.data)
	}
	return result, nil
}
