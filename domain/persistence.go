// SPDX-License-Identifier: GPL-3.0-or-later
package domain

// DeletionLogStore serializes the deletion audit log to durable storage.
// Entries round-trip all DeletionLogEntry fields in insertion order.
type DeletionLogStore interface {
	Close() error
	AppendEntries(entries []DeletionLogEntry) error
	AllEntries() ([]DeletionLogEntry, error)
}
