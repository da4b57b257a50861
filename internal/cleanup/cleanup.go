// Package cleanup runs process-exit hooks such as closing the log file.
package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

var (
	mu    sync.Mutex
	hooks []func() error
)

// Register adds a cleanup hook executed in LIFO order.
func Register(hook func() error) {
	if hook == nil {
		return
	}
	mu.Lock()
	hooks = append(hooks, hook)
	mu.Unlock()
}

// RunAll executes and clears all registered hooks. Every hook runs even when
// an earlier one fails.
func RunAll() error {
	mu.Lock()
	local := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(local) - 1; i >= 0; i-- {
		if err := local[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
}
