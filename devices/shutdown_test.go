package devices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestShutdownHook_RunsInReverseOrder(t *testing.T) {
	hook := NewShutdownHook()

	var order []string
	for _, name := range []string{"backend", "engine", "server"} {
		hook.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if hook.Count() != 3 {
		t.Errorf("Expected 3 hooks, got %d", hook.Count())
	}

	if err := hook.Shutdown(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	want := []string{"server", "engine", "backend"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}

	if hook.Count() != 0 {
		t.Errorf("Expected hooks to be cleared, got %d", hook.Count())
	}
}

func TestShutdownHook_ErrorsAreJoined(t *testing.T) {
	hook := NewShutdownHook()
	errCleanup := errors.New("cleanup failed")

	ran := 0
	hook.Register("success", func(ctx context.Context) error { ran++; return nil })
	hook.Register("failure", func(ctx context.Context) error { ran++; return errCleanup })
	hook.Register("success2", func(ctx context.Context) error { ran++; return nil })

	err := hook.Shutdown(context.Background())
	if !errors.Is(err, errCleanup) {
		t.Errorf("Shutdown() = %v, want %v", err, errCleanup)
	}
	if ran != 3 {
		t.Errorf("expected every hook to run, ran %d", ran)
	}
	if hook.Count() != 0 {
		t.Errorf("Expected hooks to be cleared even after error, got %d", hook.Count())
	}
}

func TestShutdownHook_EmptyShutdown(t *testing.T) {
	if err := NewShutdownHook().Shutdown(context.Background()); err != nil {
		t.Errorf("Empty shutdown should not error: %v", err)
	}
}

func TestShutdownHook_ConcurrentRegister(t *testing.T) {
	hook := NewShutdownHook()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hook.Register(fmt.Sprintf("hook-%d", n), func(ctx context.Context) error { return nil })
		}(i)
	}
	wg.Wait()

	if hook.Count() != 10 {
		t.Errorf("Expected 10 hooks, got %d", hook.Count())
	}
}
