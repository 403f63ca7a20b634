package devices

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mobile-next/omniclick/utils"
)

// ShutdownHook collects cleanup functions run on SIGINT/SIGTERM. Hooks run
// in reverse registration order, so whatever was started last is stopped
// first.
type ShutdownHook struct {
	mu    sync.Mutex
	hooks []namedHook
}

type namedHook struct {
	name string
	fn   func(ctx context.Context) error
}

func NewShutdownHook() *ShutdownHook {
	return &ShutdownHook{}
}

func (s *ShutdownHook) Register(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, namedHook{name: name, fn: fn})
	utils.Verbose("Registered shutdown hook: %s", name)
}

// Shutdown runs every hook even when some fail and returns the joined
// errors. The registry is empty afterwards.
func (s *ShutdownHook) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	if len(hooks) == 0 {
		return nil
	}

	utils.Verbose("Executing %d shutdown hook(s)", len(hooks))
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if err := hook.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
			utils.Warn("Shutdown hook %s failed: %v", hook.name, err)
		}
	}

	return errors.Join(errs...)
}

func (s *ShutdownHook) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks)
}
