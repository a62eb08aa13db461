// SPDX-License-Identifier: GPL-3.0-or-later
package scanner

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	os.Exit(m.Run())
}

// fakeSession implements domain.MailSession through overridable functions,
// recording the calls the scanner issues.
type fakeSession struct {
	listFoldersFunc func() ([]string, error)
	selectFunc      func(folder string, readOnly bool) error
	searchAllFunc   func() ([]uint32, error)
	searchByFunc    func(criteria domain.SearchCriteria) ([]uint32, error)
	fetchHeaderFunc func(uid uint32) (*domain.MessageHeader, error)
	deleteFunc      func(uids []uint32) error

	selected []string
	readOnly []bool
	deleted  [][]uint32
	closed   int
}

func (f *fakeSession) ListFolders() ([]string, error) {
	if f.listFoldersFunc != nil {
		return f.listFoldersFunc()
	}
	return nil, nil
}

func (f *fakeSession) Select(folder string, readOnly bool) error {
	f.selected = append(f.selected, folder)
	f.readOnly = append(f.readOnly, readOnly)
	if f.selectFunc != nil {
		return f.selectFunc(folder, readOnly)
	}
	return nil
}

func (f *fakeSession) SearchAll() ([]uint32, error) {
	if f.searchAllFunc != nil {
		return f.searchAllFunc()
	}
	return nil, nil
}

func (f *fakeSession) SearchBy(criteria domain.SearchCriteria) ([]uint32, error) {
	if f.searchByFunc != nil {
		return f.searchByFunc(criteria)
	}
	return nil, nil
}

func (f *fakeSession) FetchHeader(uid uint32) (*domain.MessageHeader, error) {
	if f.fetchHeaderFunc != nil {
		return f.fetchHeaderFunc(uid)
	}
	return nil, fmt.Errorf("no header for uid %d", uid)
}

func (f *fakeSession) Delete(uids []uint32) error {
	f.deleted = append(f.deleted, uids)
	if f.deleteFunc != nil {
		return f.deleteFunc(uids)
	}
	return nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func headersByUid(headers map[uint32]*domain.MessageHeader) func(uid uint32) (*domain.MessageHeader, error) {
	return func(uid uint32) (*domain.MessageHeader, error) {
		header, ok := headers[uid]
		if !ok {
			return nil, fmt.Errorf("fetch failed for uid %d", uid)
		}
		return header, nil
	}
}

func TestFolderScanCleanupCutoff(t *testing.T) {
	now := time.Now()
	session := &fakeSession{
		searchAllFunc: func() ([]uint32, error) {
			return []uint32{1, 2, 3}, nil
		},
		fetchHeaderFunc: headersByUid(map[uint32]*domain.MessageHeader{
			1: {Uid: 1, Subject: "old", Date: datePtr(now.Add(-2 * time.Hour))},
			2: {Uid: 2, Subject: "fresh", Date: datePtr(now.Add(-10 * time.Minute))},
			3: {Uid: 3, Subject: "undated", Date: nil},
		}),
	}

	params := FolderParams{
		Kind:    domain.KindCleanup,
		Cutoff:  now.Add(-time.Hour),
		Account: "a@example.org",
	}

	collected := []domain.MessageSummary{}
	matches, err := NewFolderScanner().Scan(session, "INBOX", params, func(s domain.MessageSummary) {
		collected = append(collected, s)
	})
	require.NoError(t, err)

	// only the mail with a known date older than the cutoff matches
	assert.Equal(t, 1, matches)
	require.Len(t, collected, 1)
	assert.Equal(t, "old", collected[0].Subject)

	// dry-run, the session must never see a delete
	assert.Empty(t, session.deleted)
	assert.Equal(t, []bool{false}, session.readOnly)
}

func TestFolderScanCleanupArmedDeletesBatch(t *testing.T) {
	now := time.Now()
	session := &fakeSession{
		searchAllFunc: func() ([]uint32, error) {
			return []uint32{4, 5, 6}, nil
		},
		fetchHeaderFunc: headersByUid(map[uint32]*domain.MessageHeader{
			4: {Uid: 4, Date: datePtr(now.Add(-3 * time.Hour))},
			5: {Uid: 5, Date: datePtr(now.Add(-time.Minute))},
			6: {Uid: 6, Date: datePtr(now.Add(-2 * time.Hour))},
		}),
	}

	params := FolderParams{
		Kind:   domain.KindCleanup,
		Cutoff: now.Add(-time.Hour),
		Armed:  true,
	}

	matches, err := NewFolderScanner().Scan(session, "INBOX", params, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, matches)
	require.Len(t, session.deleted, 1)
	assert.Equal(t, []uint32{4, 6}, session.deleted[0])
}

func TestFolderScanSearchReportsAndReadsOnly(t *testing.T) {
	sent := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	session := &fakeSession{
		searchByFunc: func(criteria domain.SearchCriteria) ([]uint32, error) {
			assert.Equal(t, "billing@shop.example", criteria.Sender)
			return []uint32{11, 12}, nil
		},
		fetchHeaderFunc: headersByUid(map[uint32]*domain.MessageHeader{
			11: {Uid: 11, Subject: "Invoice", Sender: "billing@shop.example", Date: datePtr(sent)},
			12: {Uid: 12, Subject: "Reminder", Sender: "billing@shop.example", Date: nil},
		}),
	}

	params := FolderParams{
		Kind:     domain.KindSearch,
		Criteria: domain.SearchCriteria{Sender: "billing@shop.example"},
		Account:  "a@gmail.com",
		Provider: "gmail",
		Category: domain.CategoryInbox,
	}

	collected := []domain.MessageSummary{}
	matches, err := NewFolderScanner().Scan(session, "INBOX", params, func(s domain.MessageSummary) {
		collected = append(collected, s)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, matches)
	assert.Equal(t, []bool{true}, session.readOnly)
	assert.Empty(t, session.deleted)

	require.Len(t, collected, 2)
	assert.Equal(t, "gmail", collected[0].Provider)
	assert.True(t, sent.Equal(*collected[0].SentAt))
	// a mail without a date still gets reported with a usable timestamp
	require.NotNil(t, collected[1].SentAt)
}

func TestFolderScanSearchFetchesNewestOnly(t *testing.T) {
	uids := make([]uint32, 0, 15)
	headers := map[uint32]*domain.MessageHeader{}
	now := time.Now()
	for uid := uint32(1); uid <= 15; uid++ {
		uids = append(uids, uid)
		headers[uid] = &domain.MessageHeader{Uid: uid, Date: datePtr(now)}
	}

	fetched := []uint32{}
	session := &fakeSession{
		searchByFunc: func(criteria domain.SearchCriteria) ([]uint32, error) {
			return uids, nil
		},
		fetchHeaderFunc: func(uid uint32) (*domain.MessageHeader, error) {
			fetched = append(fetched, uid)
			return headers[uid], nil
		},
	}

	params := FolderParams{
		Kind:     domain.KindSearch,
		Criteria: domain.SearchCriteria{Subject: "x"},
	}

	matches, err := NewFolderScanner().Scan(session, "INBOX", params, nil)
	require.NoError(t, err)
	assert.Equal(t, SearchFetchLimit, matches)
	assert.Equal(t, []uint32{6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, fetched)
}

func TestFolderScanSkipsUnfetchableMessages(t *testing.T) {
	now := time.Now()
	session := &fakeSession{
		searchAllFunc: func() ([]uint32, error) {
			return []uint32{1, 2, 3}, nil
		},
		fetchHeaderFunc: headersByUid(map[uint32]*domain.MessageHeader{
			1: {Uid: 1, Date: datePtr(now.Add(-2 * time.Hour))},
			// uid 2 missing, its fetch fails
			3: {Uid: 3, Date: datePtr(now.Add(-2 * time.Hour))},
		}),
	}

	params := FolderParams{
		Kind:   domain.KindCleanup,
		Cutoff: now.Add(-time.Hour),
	}

	matches, err := NewFolderScanner().Scan(session, "INBOX", params, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, matches)
}

func TestFolderScanSelectFailure(t *testing.T) {
	session := &fakeSession{
		selectFunc: func(folder string, readOnly bool) error {
			return fmt.Errorf("no such folder")
		},
	}

	matches, err := NewFolderScanner().Scan(session, "Missing", FolderParams{Kind: domain.KindCleanup}, nil)
	require.Error(t, err)
	assert.Equal(t, 0, matches)
}

func TestFolderScanSearchFailure(t *testing.T) {
	session := &fakeSession{
		searchAllFunc: func() ([]uint32, error) {
			return nil, fmt.Errorf("search rejected")
		},
	}

	matches, err := NewFolderScanner().Scan(session, "INBOX", FolderParams{Kind: domain.KindCleanup}, nil)
	require.Error(t, err)
	assert.Equal(t, 0, matches)
}
