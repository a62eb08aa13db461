// SPDX-License-Identifier: GPL-3.0-or-later
package campaign

import (
	"sync"

	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/log"
	"github.com/sweepmail/go-imap-sweeper/mail"

	"github.com/sirupsen/logrus"
)

// Gate guards whether delete operations are simulated or real, and owns the
// append-only deletion audit log. It starts disarmed (simulate-only) and can
// only be armed by presenting the unlock token. There is no disarm
// transition; stopping the recurring cleanup does not alter the armed state.
type Gate struct {
	token string

	mu      sync.Mutex
	armed   bool
	entries []domain.DeletionLogEntry

	l *logrus.Logger
}

func NewGate(token string) *Gate {
	return &Gate{
		token: token,
		l:     log.Logger(log.LOG_GATE),
	}
}

// Arm compares the presented token against the unlock secret. On a match the
// gate is armed and true is returned; otherwise the state is unchanged and
// false is returned, even when the gate is already armed.
func (g *Gate) Arm(token string) bool {
	if token != g.token {
		g.l.Warn("Rejected deletion arming attempt, token mismatch")
		return false
	}

	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()

	g.l.Warn("DELETION MODE ARMED - mails will be permanently deleted")
	return true
}

func (g *Gate) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

// RecordDeletion appends one audit entry. Called once per matched message
// regardless of armed state; the Mode field distinguishes simulated from
// executed deletions.
func (g *Gate) RecordDeletion(entry domain.DeletionLogEntry) {
	g.mu.Lock()
	g.entries = append(g.entries, entry)
	g.mu.Unlock()

	if entry.Mode == domain.ModeExecuted {
		g.l.WithFields(logrus.Fields{"account": entry.Account, "folder": entry.Folder, "subject": mail.ShortSubject(entry.Subject)}).Warn("DELETED mail")
	} else {
		g.l.WithFields(logrus.Fields{"account": entry.Account, "folder": entry.Folder, "subject": mail.ShortSubject(entry.Subject)}).Info("Would delete mail (dry-run)")
	}
}

// Entries returns a copy of the audit log in insertion order.
func (g *Gate) Entries() []domain.DeletionLogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries := make([]domain.DeletionLogEntry, len(g.entries))
	copy(entries, g.entries)
	return entries
}
