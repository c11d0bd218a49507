// SPDX-License-Identifier: MIT

package media

import (
	"context"
	"fmt"
	"os"
	"time"
)

const (
	stablePollInterval = 100 * time.Millisecond
	stablePollBudget   = 50
)

// WaitForStable polls until the file at path has a non-zero size. Camera
// software writes uploads in place, so a create event can fire while the
// file is still empty. This is a best-effort guard, not a write-completion
// signal; the budget caps the wait at a few seconds.
func WaitForStable(ctx context.Context, path string) error {
	for attempt := 0; attempt < stablePollBudget; attempt++ {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFileNotStable, path, err)
		}
		if info.Size() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stablePollInterval):
		}
	}
	return fmt.Errorf("%w: %s", ErrFileNotStable, path)
}
