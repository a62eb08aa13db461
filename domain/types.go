// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

// FolderCategory is the semantic bucket a provider-specific folder name is
// mapped to for reporting purposes.
type FolderCategory string

const (
	CategoryInbox      = FolderCategory("inbox")
	CategorySpam       = FolderCategory("spam")
	CategoryPromotions = FolderCategory("promotions")
	CategoryOther      = FolderCategory("other")
)

type CampaignKind string

const (
	KindSearch  = CampaignKind("search")
	KindCleanup = CampaignKind("cleanup")
)

type JobStatus string

const (
	StatusRunning   = JobStatus("running")
	StatusCompleted = JobStatus("completed")
)

// DeletionMode records whether a logged deletion was actually issued to the
// server or only simulated under dry-run.
type DeletionMode string

const (
	ModeSimulated = DeletionMode("simulated")
	ModeExecuted  = DeletionMode("executed")
)

// Account is one configured mail account. Immutable for the duration of a
// campaign; identified by its email address (case-insensitive).
type Account struct {
	Email    string
	Password string
	Name     string
}

// AccountSource supplies the configured accounts for a campaign. An empty
// list is a valid input yielding a zero-account campaign.
type AccountSource func() []Account

// AccountInfo is the listable view of an account, credential omitted.
type AccountInfo struct {
	Email string
	Name  string
}

// MessageSummary is produced per scanned message and never persisted beyond
// the result or log entry it feeds. SentAt is nil when the Date header was
// missing or unparsable.
type MessageSummary struct {
	Account  string
	Provider string
	Folder   string
	Category FolderCategory
	SentAt   *time.Time
	Subject  string
	Sender   string
	Uid      uint32
}

// DeletionLogEntry is one append-only audit record. Entries are never
// deduplicated, a message revisited in a later sweep is logged again.
type DeletionLogEntry struct {
	Account   string
	Folder    string
	Subject   string
	Sender    string
	SentAt    time.Time
	ScannedAt time.Time
	Mode      DeletionMode
}

// CampaignJob tracks one search or cleanup pass across all accounts.
// Mutated incrementally after each account finishes, immutable once
// Status is StatusCompleted.
type CampaignJob struct {
	Id                string
	Kind              CampaignKind
	Status            JobStatus
	AccountsTotal     int
	AccountsCompleted int
	Results           []MessageSummary
}
