// SPDX-License-Identifier: GPL-3.0-or-later
package imapsession

import (
	"fmt"
	"io"

	"github.com/sweepmail/go-imap-sweeper/domain"
	"github.com/sweepmail/go-imap-sweeper/log"
	"github.com/sweepmail/go-imap-sweeper/mail"

	"github.com/emersion/go-imap"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

// Session implements domain.MailSession over one authenticated go-imap
// connection. It belongs to exactly one account and must not be shared
// across concurrent operations.
type Session struct {
	connection  *client.Client
	mailDeleter deleter

	account        string
	selectedFolder string

	l *logrus.Logger
}

// Dial opens and authenticates a session. It satisfies domain.SessionDialer.
func Dial(host string, account domain.Account) (domain.MailSession, error) {
	s, err := NewSession(host, account)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func NewSession(host string, account domain.Account) (*Session, error) {
	imapClient, err := client.DialTLS(host, nil)
	if err != nil {
		return nil, &domain.ConnectionError{Account: account.Email, Err: fmt.Errorf("could not dial to imap: %w", err)}
	}

	err = imapClient.Login(account.Email, account.Password)
	if err != nil {
		_ = imapClient.Logout()
		return nil, &domain.ConnectionError{Account: account.Email, Err: fmt.Errorf("could not login to imap: %w", err)}
	}

	session := &Session{
		connection: imapClient,
		account:    account.Email,
		l:          log.Logger(log.LOG_IMAP),
	}

	baseLogger := session.l.WithFields(logrus.Fields{"server": host, "account": account.Email})
	baseLogger.Debug("Logged in to server")

	uidPlusClient := uidplus.NewClient(imapClient)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		_ = imapClient.Logout()
		return nil, &domain.ConnectionError{Account: account.Email, Err: fmt.Errorf("could not check for UIDPLUS support: %w", err)}
	}

	if uidPlusSupported {
		baseLogger.Debug("UIDPLUS supported on server, using UID delete")
		session.mailDeleter = &uidPlusDeleter{
			imapConn:      session,
			uidplusClient: uidPlusClient,
		}
	} else {
		baseLogger.Info("UIDPLUS not supported on server, falling back to flag&expunge")
		session.mailDeleter = &compatibilityDeleter{
			imapConn: session,
		}
	}

	return session, nil
}

func (s *Session) ListFolders() ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.connection.List("", "*", mailboxes)
	}()

	folders := []string{}
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, &domain.ProtocolError{Op: "list", Err: err}
	}

	return folders, nil
}

func (s *Session) Select(folder string, readOnly bool) error {
	_, err := s.connection.Select(folder, readOnly)
	if err != nil {
		return &domain.ProtocolError{Op: "select", Folder: folder, Err: err}
	}

	s.selectedFolder = folder
	return nil
}

// SearchAll returns every uid in the selected folder (empty search criteria).
func (s *Session) SearchAll() ([]uint32, error) {
	uids, err := s.connection.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, &domain.ProtocolError{Op: "search", Folder: s.selectedFolder, Err: err}
	}

	return uids, nil
}

func (s *Session) SearchBy(criteria domain.SearchCriteria) ([]uint32, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	search := imap.NewSearchCriteria()
	if criteria.Sender != "" {
		search.Header.Add("From", criteria.Sender)
	}
	if criteria.Subject != "" {
		search.Header.Add("Subject", criteria.Subject)
	}

	uids, err := s.connection.UidSearch(search)
	if err != nil {
		return nil, &domain.ProtocolError{Op: "search", Folder: s.selectedFolder, Err: err}
	}

	return uids, nil
}

// FetchHeader retrieves the From, Subject and Date headers of one message.
// The body is never transferred.
func (s *Session) FetchHeader(uid uint32) (*domain.MessageHeader, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uid)

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields: []string{
				"From",
				"Subject",
				"Date",
			},
		},
		Peek: true,
	}
	fetchItems := []imap.FetchItem{section.FetchItem()}

	out := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.connection.UidFetch(seqset, fetchItems, out)
	}()

	var header *domain.MessageHeader
	for msg := range out {
		r := msg.GetBody(section)
		if r == nil {
			continue
		}

		rawHeader, err := io.ReadAll(r)
		if err != nil {
			return nil, &domain.ProtocolError{Op: "fetch", Folder: s.selectedFolder, Err: fmt.Errorf("could not read mail header: %w", err)}
		}

		subject, sender, date, err := mail.HeaderInfos(rawHeader)
		if err != nil {
			return nil, &domain.ProtocolError{Op: "fetch", Folder: s.selectedFolder, Err: err}
		}

		header = &domain.MessageHeader{
			Uid:     msg.Uid,
			Subject: subject,
			Sender:  sender,
			Date:    date,
		}
	}

	if err := <-done; err != nil {
		return nil, &domain.ProtocolError{Op: "fetch", Folder: s.selectedFolder, Err: err}
	}

	if header == nil {
		return nil, &domain.ProtocolError{Op: "fetch", Folder: s.selectedFolder, Err: fmt.Errorf("no header returned for uid %d", uid)}
	}

	return header, nil
}

// Delete flags the uids deleted and expunges them in one batch using the
// strategy negotiated at dial time.
func (s *Session) Delete(uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	if err := s.mailDeleter.delete(uids); err != nil {
		return &domain.ProtocolError{Op: "delete", Folder: s.selectedFolder, Err: err}
	}

	s.l.WithFields(logrus.Fields{"account": s.account, "folder": s.selectedFolder, "deleted": len(uids)}).Info("Deleted mails")
	return nil
}

// Close logs out and releases the connection. Safe to call more than once.
func (s *Session) Close() error {
	if s.connection == nil {
		return nil
	}

	err := s.connection.Logout()
	s.connection = nil
	if err != nil {
		return fmt.Errorf("could not logout: %w", err)
	}

	return nil
}

func (s *Session) flagDeleted(uids []uint32) (*imap.SeqSet, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := s.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not set delete flag: %w", err)
	}

	return seqset, nil
}

func (s *Session) expunge(ch chan uint32) error {
	return s.connection.Expunge(ch)
}

func (s *Session) uidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return s.connection.UidSearch(criteria)
}
