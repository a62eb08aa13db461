// SPDX-License-Identifier: GPL-3.0-or-later
package imapsession

import "github.com/emersion/go-imap"

func u32(values ...uint32) []uint32 {
	return values
}

func seqSet(uids ...uint32) *imap.SeqSet {
	s := new(imap.SeqSet)
	s.AddNum(uids...)
	return s
}
