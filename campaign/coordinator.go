// SPDX-License-Identifier: GPL-3.0-or-later
package campaign

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/log"
	"github.com/sweepmail/go-imap-sweeper/scanner"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxCompletedJobs caps the completed-campaign index so the job
	// table does not grow without bound across a long-lived process.
	DefaultMaxCompletedJobs = 256

	// sweepBackoff is the shortened wait after a sweep-level failure of the
	// recurring cleanup loop, instead of the configured interval.
	sweepBackoff = 5 * time.Minute
)

// ErrCleanupRunning rejects starting a second recurring cleanup loop while
// one is active.
var ErrCleanupRunning = fmt.Errorf("recurring cleanup is already running")

type accountScanner interface {
	Scan(account domain.Account, p scanner.CampaignParams, onMatch func(domain.MessageSummary)) error
}

// Status is the incremental view of a campaign returned to status readers.
type Status struct {
	Id        string
	Kind      domain.CampaignKind
	Status    domain.JobStatus
	Completed int
	Total     int
	Results   []domain.MessageSummary
}

// Results is the final payload of a completed campaign.
type Results struct {
	Id           string
	TotalChecked int
	Results      []domain.MessageSummary
}

// Coordinator runs campaigns over all configured accounts, aggregates their
// results and publishes incremental progress under a job id. One account's
// failure never aborts a campaign.
type Coordinator struct {
	accounts domain.AccountSource
	scanner  accountScanner
	gate     *Gate

	configuration *configuration

	mu             sync.RWMutex
	running        map[string]*domain.CampaignJob
	completed      map[string]*domain.CampaignJob
	completedOrder []string
	persisted      int

	cleanupMu   sync.Mutex
	cleanupOn   bool
	cleanupStop chan struct{}

	wait func(d time.Duration, stop <-chan struct{}) bool

	l *logrus.Logger
}

func NewCoordinator(accounts domain.AccountSource, dial domain.SessionDialer, gate *Gate, configFunc ...ConfigFunc) (*Coordinator, error) {
	config := &configuration{MaxCompletedJobs: DefaultMaxCompletedJobs}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return &Coordinator{
		accounts:      accounts,
		scanner:       scanner.NewAccountScanner(dial),
		gate:          gate,
		configuration: config,
		running:       map[string]*domain.CampaignJob{},
		completed:     map[string]*domain.CampaignJob{},
		wait:          waitInterruptible,
		l:             log.Logger(log.LOG_CAMPAIGN),
	}, nil
}

// StartSearch begins an asynchronous search campaign and returns its job id.
// At least one of sender and subject must be given.
func (co *Coordinator) StartSearch(sender, subject string) (string, error) {
	criteria := domain.SearchCriteria{Sender: sender, Subject: subject}
	if err := criteria.Validate(); err != nil {
		return "", fmt.Errorf("search needs a sender or a subject: %w", err)
	}

	accounts := co.accounts()
	job := co.newJob(domain.KindSearch, len(accounts))
	co.l.WithFields(logrus.Fields{"job": job.Id, "accounts": len(accounts), "sender": sender, "subject": subject}).Info("Starting search campaign")

	go co.runCampaign(job, accounts, scanner.CampaignParams{
		Kind:     domain.KindSearch,
		Criteria: criteria,
	})

	return job.Id, nil
}

// GetStatus returns the incremental state of a running or completed job.
func (co *Coordinator) GetStatus(jobId string) (*Status, error) {
	co.mu.RLock()
	defer co.mu.RUnlock()

	job, ok := co.running[jobId]
	if !ok {
		job, ok = co.completed[jobId]
	}
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	results := make([]domain.MessageSummary, len(job.Results))
	copy(results, job.Results)

	return &Status{
		Id:        job.Id,
		Kind:      job.Kind,
		Status:    job.Status,
		Completed: job.AccountsCompleted,
		Total:     job.AccountsTotal,
		Results:   results,
	}, nil
}

// GetResults returns the final payload of a job, only valid once completed.
func (co *Coordinator) GetResults(jobId string) (*Results, error) {
	co.mu.RLock()
	defer co.mu.RUnlock()

	job, ok := co.completed[jobId]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	results := make([]domain.MessageSummary, len(job.Results))
	copy(results, job.Results)

	return &Results{
		Id:           job.Id,
		TotalChecked: job.AccountsTotal,
		Results:      results,
	}, nil
}

// Accounts lists the configured accounts without their credentials.
func (co *Coordinator) Accounts() []domain.AccountInfo {
	accounts := co.accounts()

	infos := make([]domain.AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		name := a.Name
		if name == "" {
			name = a.Email
		}
		infos = append(infos, domain.AccountInfo{Email: a.Email, Name: name})
	}

	return infos
}

// ArmDeletion presents the unlock token to the deletion gate.
func (co *Coordinator) ArmDeletion(token string) bool {
	return co.gate.Arm(token)
}

// GetDeletionLog returns the in-memory audit log in insertion order.
func (co *Coordinator) GetDeletionLog() []domain.DeletionLogEntry {
	return co.gate.Entries()
}

// SaveDeletionLog persists audit entries not yet written to the store.
func (co *Coordinator) SaveDeletionLog() error {
	if co.configuration.Store == nil {
		return fmt.Errorf("no deletion log store configured")
	}

	entries := co.gate.Entries()

	co.mu.Lock()
	defer co.mu.Unlock()

	fresh := entries[co.persisted:]
	if len(fresh) == 0 {
		return nil
	}

	if err := co.configuration.Store.AppendEntries(fresh); err != nil {
		return fmt.Errorf("could not persist deletion log: %w", err)
	}

	co.persisted = len(entries)
	co.l.WithField("entries", len(fresh)).Info("Persisted deletion log")
	return nil
}

// StartRecurringCleanup launches the repeating cleanup loop: sweep all
// accounts for mails older than ageMinutes, wait intervalMinutes, repeat
// until stopped. Whether matched mails are actually deleted depends on the
// gate's armed state at the start of each sweep.
func (co *Coordinator) StartRecurringCleanup(intervalMinutes, ageMinutes int) error {
	if intervalMinutes < 1 {
		return fmt.Errorf("interval must be at least one minute: %w", domain.ErrInvalidArgument)
	}
	if ageMinutes < 1 {
		return fmt.Errorf("age threshold must be at least one minute: %w", domain.ErrInvalidArgument)
	}

	co.cleanupMu.Lock()
	defer co.cleanupMu.Unlock()

	if co.cleanupOn {
		return ErrCleanupRunning
	}

	stop := make(chan struct{})
	co.cleanupOn = true
	co.cleanupStop = stop

	co.l.WithFields(logrus.Fields{"interval": intervalMinutes, "age": ageMinutes, "armed": co.gate.Armed()}).Info("Starting recurring cleanup")
	go co.cleanupLoop(time.Duration(intervalMinutes)*time.Minute, ageMinutes, stop)

	return nil
}

// StopRecurringCleanup signals the loop to exit after its current wait. It
// never interrupts a sweep in flight and does not disarm the gate.
func (co *Coordinator) StopRecurringCleanup() {
	co.cleanupMu.Lock()
	defer co.cleanupMu.Unlock()

	if !co.cleanupOn || co.cleanupStop == nil {
		return
	}

	close(co.cleanupStop)
	co.cleanupStop = nil
	co.l.Info("Recurring cleanup stop requested")
}

func (co *Coordinator) cleanupLoop(interval time.Duration, ageMinutes int, stop chan struct{}) {
	for {
		wait := interval
		if err := co.runSweep(ageMinutes); err != nil {
			co.l.WithField("error", err).Error("Cleanup sweep failed, backing off")
			wait = sweepBackoff
		}

		if !co.wait(wait, stop) {
			break
		}
	}

	co.cleanupMu.Lock()
	co.cleanupOn = false
	co.cleanupMu.Unlock()
	co.l.Info("Recurring cleanup stopped")
}

// runSweep executes one full cleanup campaign synchronously. Account-level
// failures are swallowed inside the campaign; the returned error covers only
// sweep-level failures (persistence, or an unexpected panic in the loop
// body), which the caller answers with a shortened backoff.
func (co *Coordinator) runSweep(ageMinutes int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep failed unexpectedly: %v", r)
		}
	}()

	armed := co.gate.Armed()
	cutoff := time.Now().Add(-time.Duration(ageMinutes) * time.Minute)
	accounts := co.accounts()

	job := co.newJob(domain.KindCleanup, len(accounts))
	co.l.WithFields(logrus.Fields{"job": job.Id, "accounts": len(accounts), "cutoff": cutoff, "armed": armed}).Info("Starting cleanup sweep")

	co.runCampaign(job, accounts, scanner.CampaignParams{
		Kind:   domain.KindCleanup,
		Cutoff: cutoff,
		Armed:  armed,
	})

	if co.configuration.Store != nil {
		if perr := co.SaveDeletionLog(); perr != nil {
			return perr
		}
	}

	return nil
}

func (co *Coordinator) newJob(kind domain.CampaignKind, accountsTotal int) *domain.CampaignJob {
	job := &domain.CampaignJob{
		Id:            fmt.Sprintf("%s-%s", kind, uuid.NewString()),
		Kind:          kind,
		Status:        domain.StatusRunning,
		AccountsTotal: accountsTotal,
	}

	co.mu.Lock()
	co.running[job.Id] = job
	co.mu.Unlock()

	return job
}

// runCampaign scans the accounts strictly sequentially. Per-job aggregates
// are extended under the coordinator lock after each account so status
// readers see progress immediately, and one account's error contributes
// zero results without stopping the loop.
func (co *Coordinator) runCampaign(job *domain.CampaignJob, accounts []domain.Account, params scanner.CampaignParams) {
	mode := domain.ModeSimulated
	if params.Armed {
		mode = domain.ModeExecuted
	}

	for _, account := range accounts {
		collected := []domain.MessageSummary{}
		onMatch := func(summary domain.MessageSummary) {
			collected = append(collected, summary)
			if params.Kind == domain.KindCleanup {
				co.gate.RecordDeletion(deletionEntry(summary, mode))
			}
		}

		if err := co.scanner.Scan(account, params, onMatch); err != nil {
			co.l.WithFields(logrus.Fields{"job": job.Id, "account": account.Email, "error": err}).Warn("Skipping account")
		}

		co.mu.Lock()
		job.Results = append(job.Results, collected...)
		job.AccountsCompleted++
		co.mu.Unlock()

		co.l.WithFields(logrus.Fields{"job": job.Id, "account": account.Email, "matches": len(collected)}).Debug("Scanned account")
	}

	co.mu.Lock()
	job.Status = domain.StatusCompleted
	delete(co.running, job.Id)
	co.completed[job.Id] = job
	co.completedOrder = append(co.completedOrder, job.Id)
	for len(co.completedOrder) > co.configuration.MaxCompletedJobs {
		oldest := co.completedOrder[0]
		co.completedOrder = co.completedOrder[1:]
		delete(co.completed, oldest)
	}
	co.mu.Unlock()

	co.l.WithFields(logrus.Fields{"job": job.Id, "results": len(job.Results)}).Info("Campaign completed")
}

func deletionEntry(summary domain.MessageSummary, mode domain.DeletionMode) domain.DeletionLogEntry {
	sentAt := time.Time{}
	if summary.SentAt != nil {
		sentAt = *summary.SentAt
	}

	return domain.DeletionLogEntry{
		Account:   summary.Account,
		Folder:    summary.Folder,
		Subject:   summary.Subject,
		Sender:    summary.Sender,
		SentAt:    sentAt,
		ScannedAt: time.Now(),
		Mode:      mode,
	}
}

func waitInterruptible(d time.Duration, stop <-chan struct{}) bool {
	select {
	case <-time.After(d):
		return true
	case <-stop:
		return false
	}
}
