// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"time"

	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/log"
	"github.com/sweepmail/go-imap-sweeper/provider"

	"github.com/sirupsen/logrus"
)

// CampaignParams is the per-campaign predicate applied to every account.
type CampaignParams struct {
	Kind     domain.CampaignKind
	Criteria domain.SearchCriteria
	Cutoff   time.Time
	Armed    bool
}

// AccountScanner runs the folder scanner over one account's relevant folder
// set. It opens exactly one session per Scan call and closes it on every
// exit path.
type AccountScanner struct {
	dial    domain.SessionDialer
	folders *FolderScanner

	l *logrus.Logger
}

func NewAccountScanner(dial domain.SessionDialer) *AccountScanner {
	return &AccountScanner{
		dial:    dial,
		folders: NewFolderScanner(),
		l:       log.Logger(log.LOG_SCANNER),
	}
}

// Scan resolves the account's provider, derives the folder set (search
// targets the known mail-delivery folders, cleanup sweeps every folder the
// server returns) and scans each folder, isolating per-folder failures.
// The returned error is account-fatal: connection or folder-listing failure.
// Retries are a caller policy, not attempted here.
func (as *AccountScanner) Scan(account domain.Account, p CampaignParams, onMatch func(domain.MessageSummary)) error {
	profile := provider.Resolve(account.Email)
	baseLogger := as.l.WithFields(logrus.Fields{"account": account.Email, "provider": profile.Kind})

	session, err := as.dial(profile.Host, account)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			baseLogger.WithField("error", err).Warn("Could not close session")
		}
	}()

	folders, err := session.ListFolders()
	if err != nil {
		return err
	}

	var targets []string
	if p.Kind == domain.KindCleanup {
		targets = folders
	} else {
		targets = profile.SearchFolders(folders)
	}
	baseLogger.WithFields(logrus.Fields{"kind": p.Kind, "folders": targets}).Debug("Scanning folders")

	for _, folder := range targets {
		folderParams := FolderParams{
			Kind:     p.Kind,
			Criteria: p.Criteria,
			Cutoff:   p.Cutoff,
			Armed:    p.Armed,
			Account:  account.Email,
			Provider: profile.Name(),
			Category: profile.Classify(folder),
		}

		matches, err := as.folders.Scan(session, folder, folderParams, onMatch)
		if err != nil {
			baseLogger.WithFields(logrus.Fields{"folder": folder, "error": err}).Warn("Skipping folder")
			continue
		}

		baseLogger.WithFields(logrus.Fields{"folder": folder, "matches": matches}).Debug("Scanned folder")
	}

	return nil
}
