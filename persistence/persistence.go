// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

// Store persists the deletion audit log in a sqlite database. It implements
// domain.DeletionLogStore; entries round-trip in insertion order.
type Store struct {
	db *sqlx.DB
	l  *logrus.Logger
}

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1-create-deletions",
			Up: []string{`
				CREATE TABLE deletions (
					id        INTEGER PRIMARY KEY AUTOINCREMENT,
					account   TEXT NOT NULL,
					folder    TEXT NOT NULL,
					subject   TEXT NOT NULL,
					sender    TEXT NOT NULL,
					sentat    TIMESTAMP NOT NULL,
					scannedat TIMESTAMP NOT NULL,
					mode      TEXT NOT NULL
				)`,
			},
			Down: []string{`DROP TABLE deletions`},
		},
	},
}

func NewStore(datasource string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("file", datasource).Info("Connected")

	_, err = db.Exec(`PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	_, err = db.Exec(`PRAGMA synchronous=normal`)
	if err != nil {
		return nil, fmt.Errorf("could not set synchronous mode: %w", err)
	}

	appliedMigrations, err := migrate.Exec(db.DB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	return &Store{
		db: db,
		l:  l,
	}, nil
}

func (s *Store) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	s.l.Info("Disconnected")
	return nil
}

func (s *Store) AppendEntries(entries []domain.DeletionLogEntry) error {
	tx, err := s.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO deletions(account, folder, subject, sender, sentat, scannedat, mode) VALUES(?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}

	for _, entry := range entries {
		_, err := stmt.Exec(
			entry.Account, entry.Folder, entry.Subject, entry.Sender, entry.SentAt, entry.ScannedAt, string(entry.Mode),
		)

		if err != nil {
			return txEnd(tx, fmt.Errorf("could not save deletion entry: %w", err))
		}
	}

	if err := txEnd(tx, nil); err != nil {
		return err
	}

	s.l.WithField("entries", len(entries)).Debug("Saved deletion entries")
	return nil
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
		return nil
	}

	rollbackErr := tx.Rollback()
	if rollbackErr != nil {
		return fmt.Errorf("%s, could not rollback tx: %w", err.Error(), rollbackErr)
	}
	return err
}

func (s *Store) AllEntries() ([]domain.DeletionLogEntry, error) {
	dbEntries := []struct {
		Account   string
		Folder    string
		Subject   string
		Sender    string
		Sentat    time.Time
		Scannedat time.Time
		Mode      string
	}{}

	err := s.db.Select(
		&dbEntries,
		`SELECT account, folder, subject, sender, sentat, scannedat, mode FROM deletions ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	entries := []domain.DeletionLogEntry{}
	for _, e := range dbEntries {
		entries = append(
			entries,
			domain.DeletionLogEntry{
				Account:   e.Account,
				Folder:    e.Folder,
				Subject:   e.Subject,
				Sender:    e.Sender,
				SentAt:    e.Sentat,
				ScannedAt: e.Scannedat,
				Mode:      domain.DeletionMode(e.Mode),
			},
		)
	}

	return entries, nil
}
