// SPDX-License-Identifier: GPL-3.0-or-later
package provider

import (
	"fmt"
	"strings"

	"github.com/sweepmail/go-imap-sweeper/domain"
)

// Kind is the closed set of known mail providers. Unknown domains map to
// KindOther with a synthesized generic IMAP host.
type Kind string

const (
	KindGmail   = Kind("gmail")
	KindYahoo   = Kind("yahoo")
	KindOutlook = Kind("outlook")
	KindOther   = Kind("other")
)

// Profile carries everything provider-specific: the endpoint host, the
// exact-match folder classification table and the search-folder strategy.
// Derived deterministically from an email address, no mutable state.
type Profile struct {
	Kind   Kind
	Domain string
	Host   string

	aliases map[string]domain.FolderCategory
}

var gmailAliases = map[string]domain.FolderCategory{
	"inbox":              domain.CategoryInbox,
	"[gmail]/all mail":   domain.CategoryInbox,
	"[gmail]/spam":       domain.CategorySpam,
	"[gmail]/junk":       domain.CategorySpam,
	"[gmail]/promotions": domain.CategoryPromotions,
}

var yahooAliases = map[string]domain.FolderCategory{
	"inbox":      domain.CategoryInbox,
	"bulk mail":  domain.CategorySpam,
	"spam":       domain.CategorySpam,
	"junk":       domain.CategorySpam,
	"promotions": domain.CategoryPromotions,
}

var outlookAliases = map[string]domain.FolderCategory{
	"inbox":      domain.CategoryInbox,
	"junk email": domain.CategorySpam,
	"spam":       domain.CategorySpam,
	"promotions": domain.CategoryPromotions,
}

// Resolve maps an email address to its provider profile. Pure and total, an
// address without a recognizable domain still yields a usable profile.
func Resolve(email string) Profile {
	at := strings.LastIndex(email, "@")
	d := strings.ToLower(email[at+1:])

	switch {
	case strings.Contains(d, "gmail"):
		return Profile{Kind: KindGmail, Domain: d, Host: "imap.gmail.com:993", aliases: gmailAliases}
	case strings.Contains(d, "yahoo"):
		return Profile{Kind: KindYahoo, Domain: d, Host: "imap.mail.yahoo.com:993", aliases: yahooAliases}
	case strings.Contains(d, "outlook"), strings.Contains(d, "hotmail"), strings.Contains(d, "live"):
		return Profile{Kind: KindOutlook, Domain: d, Host: "outlook.office365.com:993", aliases: outlookAliases}
	}

	return Profile{Kind: KindOther, Domain: d, Host: fmt.Sprintf("imap.%s:993", d)}
}

// Name is the provider identifier used in reports: the kind for known
// providers, the bare domain for everything else.
func (p Profile) Name() string {
	if p.Kind == KindOther {
		return p.Domain
	}
	return string(p.Kind)
}

// Classify buckets a folder name. The provider table is checked first,
// then generic substring rules. Unmatched names classify as inbox so that
// unknown folders are treated as primary mail, never silently dropped.
func (p Profile) Classify(folder string) domain.FolderCategory {
	lower := strings.ToLower(folder)

	if category, ok := p.aliases[lower]; ok {
		return category
	}

	switch {
	case strings.Contains(lower, "inbox"):
		return domain.CategoryInbox
	case strings.Contains(lower, "spam"), strings.Contains(lower, "junk"), strings.Contains(lower, "bulk"):
		return domain.CategorySpam
	case strings.Contains(lower, "promotion"), strings.Contains(lower, "marketing"), strings.Contains(lower, "offers"):
		return domain.CategoryPromotions
	}

	return domain.CategoryInbox
}

// SearchFolders returns the folders a search campaign targets. INBOX is
// always first. Yahoo is the only provider whose spam folder name is not
// standardized, so its set is derived from the live folder listing.
func (p Profile) SearchFolders(liveFolders []string) []string {
	folders := []string{"INBOX"}

	switch p.Kind {
	case KindGmail:
		folders = append(folders, "[Gmail]/Spam", "[Gmail]/Promotions", "[Gmail]/All Mail")
	case KindOutlook:
		folders = append(folders, "Junk Email")
	case KindYahoo:
		for _, f := range liveFolders {
			lower := strings.ToLower(f)
			if strings.EqualFold(f, "INBOX") {
				continue
			}
			if strings.Contains(lower, "bulk") || strings.Contains(lower, "spam") || strings.Contains(lower, "junk") {
				folders = append(folders, f)
			}
		}
	}

	return folders
}
