// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"strings"
	"time"
)

// SearchCriteria combines FROM and SUBJECT substring matching. When both are
// given they are ANDed. At least one must be supplied.
type SearchCriteria struct {
	Sender  string
	Subject string
}

func (c SearchCriteria) Validate() error {
	if strings.TrimSpace(c.Sender) == "" && strings.TrimSpace(c.Subject) == "" {
		return ErrInvalidArgument
	}
	return nil
}

// MessageHeader is the header-only view of one message. Date is nil when the
// Date header was missing or could not be parsed.
type MessageHeader struct {
	Uid     uint32
	Subject string
	Sender  string
	Date    *time.Time
}

// MailSession owns one authenticated connection to one account. A session is
// never shared across concurrent operations; callers must not issue
// overlapping operations on the same session.
type MailSession interface {
	// ListFolders returns the names of all folders on the server.
	ListFolders() ([]string, error)
	// Select makes folder the target of subsequent search/fetch/delete calls.
	Select(folder string, readOnly bool) error
	// SearchAll returns the uids of every message in the selected folder.
	SearchAll() ([]uint32, error)
	// SearchBy returns the uids matching the given criteria server-side.
	SearchBy(criteria SearchCriteria) ([]uint32, error)
	// FetchHeader retrieves header fields only, never the full body.
	FetchHeader(uid uint32) (*MessageHeader, error)
	// Delete flags the given uids deleted and expunges them in one batch.
	Delete(uids []uint32) error
	// Close releases the underlying connection. Idempotent and safe to call
	// after partial failure.
	Close() error
}

// SessionDialer opens an authenticated MailSession against host for the given
// account. Failures are reported as *ConnectionError.
type SessionDialer func(host string, account Account) (MailSession, error)
