// SPDX-License-Identifier: GPL-3.0-or-later
package campaign

import (
	"fmt"

	"github.com/sweepmail/go-imap-sweeper/domain"
)

type ConfigFunc func(c *configuration) error

// WithDeletionLogStore enables durable serialization of the deletion audit
// log. Without it the log lives in memory only.
func WithDeletionLogStore(store domain.DeletionLogStore) ConfigFunc {
	return func(c *configuration) error {
		if store == nil {
			return fmt.Errorf("DeletionLogStore cannot be nil")
		}

		c.Store = store
		return nil
	}
}

// MaxCompletedJobs bounds the completed-campaign index; the oldest completed
// job is evicted once the cap is exceeded.
func MaxCompletedJobs(max int) ConfigFunc {
	return func(c *configuration) error {
		if max < 1 {
			return fmt.Errorf("MaxCompletedJobs must be at least 1")
		}

		c.MaxCompletedJobs = max
		return nil
	}
}

type configuration struct {
	Store            domain.DeletionLogStore
	MaxCompletedJobs int
}
