// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweepmail/go-imap-sweeper/campaign"
	"github.com/sweepmail/go-imap-sweeper/config"
	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/imapsession"
	"github.com/sweepmail/go-imap-sweeper/log"
	"github.com/sweepmail/go-imap-sweeper/mail"
	"github.com/sweepmail/go-imap-sweeper/persistence"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	log.InitLogging("debug")
	logger := log.Logger(log.LOG_MAIN)

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithField("error", err).Warn("Could not load .env file")
	}

	conf, err := config.ReadConfig("config.toml")
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	store, err := persistence.NewStore(conf.Database)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not open deletion log store")
	}
	defer store.Close()

	gate := campaign.NewGate(conf.UnlockToken)

	coordinator, err := campaign.NewCoordinator(
		conf.DomainAccounts,
		imapsession.Dial,
		gate,
		campaign.WithDeletionLogStore(store),
	)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start campaign coordinator")
	}

	logger.WithField("accounts", len(conf.Accounts)).Info("Configured accounts loaded")

	if conf.Search != nil {
		runSearch(logger, coordinator, conf.Search)
	}

	if conf.Cleanup != nil {
		runCleanup(logger, coordinator, conf.Cleanup)
	}

	if conf.Search == nil && conf.Cleanup == nil {
		logger.Warn("Neither a [Search] nor a [Cleanup] section is configured, nothing to do")
	}
}

func runSearch(logger *logrus.Logger, coordinator *campaign.Coordinator, search *config.Search) {
	jobId, err := coordinator.StartSearch(search.Sender, search.Subject)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start search")
	}

	for {
		status, err := coordinator.GetStatus(jobId)
		if err != nil {
			logger.WithField("error", err).Fatal("Could not query search status")
		}

		logger.WithFields(logrus.Fields{"job": jobId, "completed": status.Completed, "total": status.Total}).Info("Search progress")
		if status.Status == domain.StatusCompleted {
			break
		}

		time.Sleep(2 * time.Second)
	}

	results, err := coordinator.GetResults(jobId)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not fetch search results")
	}

	logger.WithFields(logrus.Fields{"results": len(results.Results), "checked": results.TotalChecked}).Info("Search completed")
	for _, r := range results.Results {
		logger.WithFields(logrus.Fields{
			"account":  r.Account,
			"provider": r.Provider,
			"category": r.Category,
			"folder":   r.Folder,
			"sender":   r.Sender,
			"subject":  mail.ShortSubject(r.Subject),
		}).Info("Match")
	}
}

func runCleanup(logger *logrus.Logger, coordinator *campaign.Coordinator, cleanup *config.Cleanup) {
	if cleanup.Confirm != "" {
		if coordinator.ArmDeletion(cleanup.Confirm) {
			logger.Warn("Deletion gate armed, cleanup sweeps will delete mails")
		} else {
			logger.Error("Deletion gate rejected the confirm token, staying in simulate mode")
		}
	} else {
		logger.Info("No confirm token configured, cleanup sweeps run in simulate mode")
	}

	if err := coordinator.StartRecurringCleanup(cleanup.IntervalMinutes, cleanup.AgeMinutes); err != nil {
		logger.WithField("error", err).Fatal("Could not start recurring cleanup")
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	coordinator.StopRecurringCleanup()
	if err := coordinator.SaveDeletionLog(); err != nil {
		logger.WithField("error", err).Error("Could not persist deletion log on shutdown")
	}

	logger.Info("Shutting down")
}
