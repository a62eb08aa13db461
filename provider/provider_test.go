// SPDX-License-Identifier: GPL-3.0-or-later
package provider

import (
	"testing"

	"github.com/sweepmail/go-imap-sweeper/domain"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		email  string
		kind   Kind
		host   string
		name   string
	}{
		{"alice@gmail.com", KindGmail, "imap.gmail.com:993", "gmail"},
		{"alice@googlemail-gmail.example", KindGmail, "imap.gmail.com:993", "gmail"},
		{"bob@yahoo.com", KindYahoo, "imap.mail.yahoo.com:993", "yahoo"},
		{"bob@yahoo.co.uk", KindYahoo, "imap.mail.yahoo.com:993", "yahoo"},
		{"carol@outlook.com", KindOutlook, "outlook.office365.com:993", "outlook"},
		{"carol@hotmail.de", KindOutlook, "outlook.office365.com:993", "outlook"},
		{"carol@live.com", KindOutlook, "outlook.office365.com:993", "outlook"},
		{"dave@example.org", KindOther, "imap.example.org:993", "example.org"},
		{"MiXeD@GMAIL.COM", KindGmail, "imap.gmail.com:993", "gmail"},
	}
	for _, tc := range tests {
		t.Run(tc.email, func(t *testing.T) {
			profile := Resolve(tc.email)
			assert.Equal(t, tc.kind, profile.Kind)
			assert.Equal(t, tc.host, profile.Host)
			assert.Equal(t, tc.name, profile.Name())
		})
	}
}

func TestClassify(t *testing.T) {
	gmail := Resolve("a@gmail.com")
	yahoo := Resolve("a@yahoo.com")
	outlook := Resolve("a@outlook.com")
	other := Resolve("a@example.org")

	tests := []struct {
		name     string
		profile  Profile
		folder   string
		expected domain.FolderCategory
	}{
		{"gmail allmail", gmail, "[Gmail]/All Mail", domain.CategoryInbox},
		{"gmail spam", gmail, "[Gmail]/Spam", domain.CategorySpam},
		{"gmail promotions", gmail, "[Gmail]/Promotions", domain.CategoryPromotions},
		{"yahoo bulk", yahoo, "Bulk Mail", domain.CategorySpam},
		{"outlook junk", outlook, "Junk Email", domain.CategorySpam},
		{"substring junk", other, "My Junk Things", domain.CategorySpam},
		{"substring marketing", other, "marketing-blasts", domain.CategoryPromotions},
		{"substring inbox", other, "Inbox/Important", domain.CategoryInbox},
		{"unmatched defaults to inbox", other, "Receipts", domain.CategoryInbox},
		{"unmatched defaults for gmail too", gmail, "Totally Custom", domain.CategoryInbox},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.profile.Classify(tc.folder))
		})
	}
}

func TestSearchFolders(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		live     []string
		expected []string
	}{
		{
			"gmail has a fixed well-known set",
			"a@gmail.com",
			[]string{"INBOX", "[Gmail]/Spam", "Other"},
			[]string{"INBOX", "[Gmail]/Spam", "[Gmail]/Promotions", "[Gmail]/All Mail"},
		},
		{
			"outlook adds the junk folder",
			"a@outlook.com",
			nil,
			[]string{"INBOX", "Junk Email"},
		},
		{
			"yahoo discovers spam folders from the live listing",
			"a@yahoo.com",
			[]string{"INBOX", "Bulk Mail", "Archive", "SpamCandidates"},
			[]string{"INBOX", "Bulk Mail", "SpamCandidates"},
		},
		{
			"unknown providers search the inbox only",
			"a@example.org",
			[]string{"INBOX", "Junk"},
			[]string{"INBOX"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			profile := Resolve(tc.email)
			assert.Equal(t, tc.expected, profile.SearchFolders(tc.live))
		})
	}
}
