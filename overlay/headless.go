package overlay

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mobile-next/omniclick/types"
)

// Change describes one mutation applied by a HeadlessManager.
type Change struct {
	Op     string
	ID     WindowID
	Name   string
	Layout types.WindowLayout
}

// HeadlessManager is an in-memory WindowManager. It backs the headless and adb
// backends, where no on-device agent hosts real windows, and it is what tests
// observe the engine through.
type HeadlessManager struct {
	mu      sync.Mutex
	next    int
	windows map[WindowID]*headlessWindow
	focused WindowID

	// OnChange, when set, is called synchronously after every successful mutation.
	OnChange func(Change)
}

type headlessWindow struct {
	name   string
	layout types.WindowLayout
}

func NewHeadlessManager() *HeadlessManager {
	return &HeadlessManager{
		windows: make(map[WindowID]*headlessWindow),
	}
}

func (m *HeadlessManager) AddWindow(name string, layout types.WindowLayout) (WindowID, error) {
	m.mu.Lock()
	m.next++
	id := WindowID(fmt.Sprintf("%s-%d", name, m.next))
	m.windows[id] = &headlessWindow{name: name, layout: layout}
	m.mu.Unlock()

	m.notify(Change{Op: "add", ID: id, Name: name, Layout: layout})
	return id, nil
}

func (m *HeadlessManager) UpdateWindow(id WindowID, layout types.WindowLayout) error {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, ErrWindowGone)
	}
	w.layout = layout
	name := w.name
	m.mu.Unlock()

	m.notify(Change{Op: "update", ID: id, Name: name, Layout: layout})
	return nil
}

func (m *HeadlessManager) RemoveWindow(id WindowID) error {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, ErrWindowGone)
	}
	delete(m.windows, id)
	if m.focused == id {
		m.focused = ""
	}
	m.mu.Unlock()

	m.notify(Change{Op: "remove", ID: id, Name: w.name, Layout: w.layout})
	return nil
}

func (m *HeadlessManager) RequestFocus(id WindowID) error {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("focus %s: %w", id, ErrWindowGone)
	}
	m.focused = id
	m.mu.Unlock()

	m.notify(Change{Op: "focus", ID: id, Name: w.name, Layout: w.layout})
	return nil
}

// Drop forgets a window without going through the owner, simulating the
// platform tearing it down underneath the engine.
func (m *HeadlessManager) Drop(id WindowID) {
	m.mu.Lock()
	delete(m.windows, id)
	m.mu.Unlock()
}

// Layout returns the current layout of the first window with the given name.
func (m *HeadlessManager) Layout(name string) (types.WindowLayout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.sortedIDs() {
		if w := m.windows[id]; w.name == name {
			return w.layout, true
		}
	}
	return types.WindowLayout{}, false
}

// Count returns the number of live windows.
func (m *HeadlessManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Focused returns the name of the focused window, if any.
func (m *HeadlessManager) Focused() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[m.focused]; ok {
		return w.name
	}
	return ""
}

func (m *HeadlessManager) sortedIDs() []WindowID {
	ids := make([]WindowID, 0, len(m.windows))
	for id := range m.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *HeadlessManager) notify(c Change) {
	if m.OnChange != nil {
		m.OnChange(c)
	}
}
