package server

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/mobile-next/omniclick/engine"
	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/types"
)

type pointParams struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (p pointParams) validate() error {
	if p.X == nil || p.Y == nil {
		return invalidParams("'x' and 'y' are required")
	}
	return nil
}

type swipeParams struct {
	X1         *float64 `json:"x1"`
	Y1         *float64 `json:"y1"`
	X2         *float64 `json:"x2"`
	Y2         *float64 `json:"y2"`
	DurationMs float64  `json:"durationMs"`
}

func (p swipeParams) validate() error {
	if p.X1 == nil || p.Y1 == nil || p.X2 == nil || p.Y2 == nil {
		return invalidParams("'x1', 'y1', 'x2' and 'y2' are required")
	}
	if p.DurationMs < 0 {
		return invalidParams("'durationMs' must not be negative")
	}
	return nil
}

// duration keeps fractional milliseconds; the dispatcher applies the floor.
func (p swipeParams) duration() time.Duration {
	return time.Duration(p.DurationMs * float64(time.Millisecond))
}

var (
	pointNames = []string{"x", "y"}
	swipeNames = []string{"x1", "y1", "x2", "y2", "durationMs"}
	rectNames  = []string{"x", "y", "width", "height"}
)

func decodePoint(raw json.RawMessage) (float64, float64, error) {
	var p pointParams
	if err := decodeParams(raw, &p, pointNames...); err != nil {
		return 0, 0, err
	}
	if err := p.validate(); err != nil {
		return 0, 0, err
	}
	return *p.X, *p.Y, nil
}

func decodeSwipe(raw json.RawMessage) (swipeParams, error) {
	var p swipeParams
	if err := decodeParams(raw, &p, swipeNames...); err != nil {
		return p, err
	}
	return p, p.validate()
}

func (s *Server) handleReportOverlayRect(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var rect types.OverlayRect
	if err := decodeParams(raw, &rect, rectNames...); err != nil {
		return nil, err
	}
	if rect.Width < 0 || rect.Height < 0 {
		return nil, invalidParams("'width' and 'height' must not be negative")
	}
	if err := s.engine.ReportOverlayRect(rect); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleTap(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	x, y, err := decodePoint(raw)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Tap(x, y); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handlePerformClick(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	x, y, err := decodePoint(raw)
	if err != nil {
		return nil, err
	}
	if err := s.engine.PerformClick(x, y); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleSwipe(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	p, err := decodeSwipe(raw)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Swipe(*p.X1, *p.Y1, *p.X2, *p.Y2, p.duration()); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handlePerformSwipe(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	p, err := decodeSwipe(raw)
	if err != nil {
		return nil, err
	}
	if err := s.engine.PerformSwipe(*p.X1, *p.Y1, *p.X2, *p.Y2, p.duration()); err != nil {
		return nil, err
	}
	return okResponse, nil
}

// gestureResult is the wire form of a finished passthrough.
type gestureResult struct {
	ID       string  `json:"id"`
	Outcome  string  `json:"outcome"`
	FromX    float64 `json:"fromX"`
	FromY    float64 `json:"fromY"`
	ToX      float64 `json:"toX"`
	ToY      float64 `json:"toY"`
	Duration int64   `json:"durationMs"`
}

func newGestureResult(r gesture.Result) gestureResult {
	return gestureResult{
		ID:       r.ID,
		Outcome:  r.Outcome.String(),
		FromX:    r.Stroke.From.X,
		FromY:    r.Stroke.From.Y,
		ToX:      r.Stroke.To.X,
		ToY:      r.Stroke.To.Y,
		Duration: r.Stroke.Duration.Milliseconds(),
	}
}

// pendingResult is the reply of a passthrough called with wait set. The
// transport resolves it once the request has been sequenced, so a waiting
// call does not hold up the requests behind it.
type pendingResult struct {
	done <-chan gesture.Result
}

func (p *pendingResult) wait(ctx context.Context) (interface{}, error) {
	select {
	case r := <-p.done:
		return newGestureResult(r), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// awaitPassthrough notifies websocket clients when the passthrough ends. With
// wait set the reply is a pendingResult carrying the outcome.
func (s *Server) awaitPassthrough(ch <-chan gesture.Result, wait bool) interface{} {
	done := make(chan gesture.Result, 1)
	go func() {
		r := <-ch
		s.hub.passthroughDone(r)
		done <- r
	}()

	if !wait {
		return map[string]interface{}{"status": "queued"}
	}
	return &pendingResult{done: done}
}

func (s *Server) handleDispatchRecordedGesture(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		pointParams
		Wait bool `json:"wait"`
	}
	if err := decodeParams(raw, &p, "x", "y", "wait"); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	ch, err := s.engine.DispatchRecordedGesture(*p.X, *p.Y)
	if err != nil {
		return nil, err
	}
	return s.awaitPassthrough(ch, p.Wait), nil
}

func (s *Server) handleDispatchRecordedSwipe(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		swipeParams
		Wait bool `json:"wait"`
	}
	if err := decodeParams(raw, &p, append(swipeNames, "wait")...); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	ch, err := s.engine.DispatchRecordedSwipe(*p.X1, *p.Y1, *p.X2, *p.Y2, p.duration())
	if err != nil {
		return nil, err
	}
	return s.awaitPassthrough(ch, p.Wait), nil
}

func (s *Server) handleSetRecordingMode(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeParams(raw, &p, "enabled"); err != nil {
		return nil, err
	}
	if p.Enabled == nil {
		return nil, invalidParams("'enabled' is required")
	}
	s.engine.SetRecordingMode(*p.Enabled)
	return okResponse, nil
}

// hudRectParams accepts the fractional pixels a page measures and rounds
// them to whole pixels.
type hudRectParams struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (p hudRectParams) pixels() types.PixelRect {
	return types.PixelRect{
		X:      int(math.Round(p.X)),
		Y:      int(math.Round(p.Y)),
		Width:  int(math.Round(p.Width)),
		Height: int(math.Round(p.Height)),
	}
}

func (s *Server) handleSetHudRect(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p hudRectParams
	if err := decodeParams(raw, &p, rectNames...); err != nil {
		return nil, err
	}
	if p.Width < 0 || p.Height < 0 {
		return nil, invalidParams("'width' and 'height' must not be negative")
	}
	if err := s.engine.SetHudRect(p.pixels()); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleRequestInputFocus(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	if err := s.engine.RequestInputFocus(); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleClearInputFocus(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	if err := s.engine.ClearInputFocus(); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleOpenFilePicker(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Slot string `json:"slot"`
	}
	if err := decodeParams(raw, &p, "slot"); err != nil {
		return nil, err
	}
	if p.Slot == "" {
		return nil, invalidParams("'slot' is required")
	}
	if err := s.engine.OpenFilePicker(p.Slot); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleSaveFile(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		FileName string `json:"fileName"`
		Content  string `json:"content"`
	}
	if err := decodeParams(raw, &p, "fileName", "content"); err != nil {
		return nil, err
	}
	if err := s.engine.SaveFile(p.FileName, p.Content); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleClose(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	if err := s.engine.Close(); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleTouchEvent(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Action string `json:"action"`
		pointParams
	}
	if err := decodeParams(raw, &p, "action", "x", "y"); err != nil {
		return nil, err
	}
	if p.Action == "" {
		return nil, invalidParams("'action' is required")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := s.engine.HandleRawTouch(engine.TouchEvent{Action: p.Action, X: *p.X, Y: *p.Y}); err != nil {
		return nil, err
	}
	return okResponse, nil
}

func (s *Server) handleStatus(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	st, err := s.engine.Status(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"version": Version,
		"clients": s.hub.Clients(),
		"engine":  st,
	}, nil
}
