// SPDX-License-Identifier: GPL-3.0-or-later
package imapsession

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// deleter is the strategy for batched delete+expunge. The UIDPLUS variant
// expunges exactly the flagged uids; the compatibility variant has to fall
// back to a full EXPUNGE and therefore refuses to run when the folder holds
// mails some other client already flagged.
type deleter interface {
	delete(uids []uint32) error
}

type deletedFlagger interface {
	flagDeleted(uids []uint32) (*imap.SeqSet, error)
}

type uidExpunger interface {
	UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error
}

type uidPlusDeleter struct {
	imapConn      deletedFlagger
	uidplusClient uidExpunger
}

func (u *uidPlusDeleter) delete(uids []uint32) error {
	seqset, err := u.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag items as deleted: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- u.uidplusClient.UidExpunge(seqset, out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

type flagExpungeSearcher interface {
	deletedFlagger
	expunge(ch chan uint32) error
	uidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
}

type compatibilityDeleter struct {
	imapConn flagExpungeSearcher
}

var errItemsWithDeletedFlagPresent = fmt.Errorf("folder has previous items with delete flag set")

func (c *compatibilityDeleter) delete(uids []uint32) error {
	// EXPUNGE removes everything carrying the deleted flag, so the folder
	// must not hold pre-flagged mails this session never asked to delete.
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	flagged, err := c.imapConn.uidSearch(criteria)
	if err != nil {
		return fmt.Errorf("could not search for deleted in folder: %w", err)
	}

	if len(flagged) > 0 {
		return fmt.Errorf("folder is not ready for delete: %w", errItemsWithDeletedFlagPresent)
	}

	_, err = c.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not set deleted flag: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.imapConn.expunge(out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}
