// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument rejects a malformed request before any network activity.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrJobNotFound is returned for an unknown job id in both the running table
// and the completed index.
var ErrJobNotFound = errors.New("job not found")

// ConnectionError is an auth or network failure while opening a session.
// Account-fatal, the campaign continues with the remaining accounts.
type ConnectionError struct {
	Account string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect account %s: %v", e.Account, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError is a list/select/search/fetch/delete failure on an open
// session. Folder- or message-fatal depending on where it is raised, never
// account- or campaign-fatal.
type ProtocolError struct {
	Op     string
	Folder string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Folder == "" {
		return fmt.Sprintf("imap %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("imap %s failed in folder %s: %v", e.Op, e.Folder, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
