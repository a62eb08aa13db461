// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"time"

	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/log"
	"github.com/sweepmail/go-imap-sweeper/mail"

	"github.com/sirupsen/logrus"
)

// SearchFetchLimit caps how many of a folder's matches a search campaign
// fetches headers for. Only the newest ones are reported.
const SearchFetchLimit = 10

// FolderParams carries the predicate and reporting context for one folder
// scan.
type FolderParams struct {
	Kind     domain.CampaignKind
	Criteria domain.SearchCriteria
	Cutoff   time.Time
	Armed    bool

	Account  string
	Provider string
	Category domain.FolderCategory
}

type FolderScanner struct {
	l *logrus.Logger
}

func NewFolderScanner() *FolderScanner {
	return &FolderScanner{l: log.Logger(log.LOG_SCANNER)}
}

// Scan walks one folder, invoking onMatch per matching message. A message
// whose header cannot be fetched or parsed is logged and skipped. The
// returned error is non-nil only for folder-level select/search failures,
// which callers treat as non-fatal; in that case the match count is zero.
//
// In cleanup mode with the gate armed, all matched uids are deleted in one
// batch after the walk. In simulate mode no delete call is ever issued.
func (fs *FolderScanner) Scan(session domain.MailSession, folder string, p FolderParams, onMatch func(domain.MessageSummary)) (int, error) {
	readOnly := p.Kind != domain.KindCleanup
	if err := session.Select(folder, readOnly); err != nil {
		return 0, err
	}

	var uids []uint32
	var err error
	if p.Kind == domain.KindSearch {
		uids, err = session.SearchBy(p.Criteria)
	} else {
		uids, err = session.SearchAll()
	}
	if err != nil {
		return 0, err
	}

	if p.Kind == domain.KindSearch && len(uids) > SearchFetchLimit {
		// uid search returns ascending order, keep the newest
		uids = uids[len(uids)-SearchFetchLimit:]
	}

	baseLogger := fs.l.WithFields(logrus.Fields{"account": p.Account, "folder": folder})

	matches := 0
	toDelete := []uint32{}
	for _, uid := range uids {
		header, err := session.FetchHeader(uid)
		if err != nil {
			baseLogger.WithFields(logrus.Fields{"uid": uid, "error": err}).Warn("Skipping message, could not fetch header")
			continue
		}

		summary, ok := fs.match(header, folder, p)
		if !ok {
			continue
		}

		matches++
		if p.Kind == domain.KindCleanup {
			toDelete = append(toDelete, uid)
		}
		baseLogger.WithFields(logrus.Fields{"uid": uid, "subject": mail.ShortSubject(header.Subject)}).Debug("Matched mail")

		if onMatch != nil {
			onMatch(summary)
		}
	}

	if p.Kind == domain.KindCleanup && len(toDelete) > 0 {
		if p.Armed {
			if err := session.Delete(toDelete); err != nil {
				baseLogger.WithFields(logrus.Fields{"matches": len(toDelete), "error": err}).Error("Could not delete matched mails")
			}
		} else {
			baseLogger.WithFields(logrus.Fields{"matches": len(toDelete)}).Info("Not deleting matched mails due to dry-run")
		}
	}

	return matches, nil
}

func (fs *FolderScanner) match(header *domain.MessageHeader, folder string, p FolderParams) (domain.MessageSummary, bool) {
	sentAt := header.Date

	if p.Kind == domain.KindCleanup {
		// A missing or unparsable date never matches an age cutoff, a mail
		// is only ever deleted on solid evidence of its age.
		if sentAt == nil {
			return domain.MessageSummary{}, false
		}
		if !sentAt.Before(p.Cutoff) {
			return domain.MessageSummary{}, false
		}
	} else if sentAt == nil {
		now := time.Now()
		sentAt = &now
	}

	return domain.MessageSummary{
		Account:  p.Account,
		Provider: p.Provider,
		Folder:   folder,
		Category: p.Category,
		SentAt:   sentAt,
		Subject:  header.Subject,
		Sender:   header.Sender,
		Uid:      header.Uid,
	}, true
}
