// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bytes"
	"fmt"
	"mime"
	stdmail "net/mail"
	"time"

	"github.com/emersion/go-message/charset"
)

// HeaderInfos parses a raw header block into subject, sender and send date.
// The date is nil when the Date header is missing or unparsable; callers
// treat such messages as never matching an age cutoff.
func HeaderInfos(rawHeader []byte) (string, string, *time.Time, error) {
	msg, err := stdmail.ReadMessage(bytes.NewReader(rawHeader))
	if err != nil {
		return "", "", nil, fmt.Errorf("could not parse mail header: %w", err)
	}

	dec := &mime.WordDecoder{
		CharsetReader: charset.Reader,
	}

	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		return "", "", nil, fmt.Errorf("could not decode subject header: %w", err)
	}

	sender, err := dec.DecodeHeader(msg.Header.Get("From"))
	if err != nil {
		return "", "", nil, fmt.Errorf("could not decode from header: %w", err)
	}

	var sentAt *time.Time
	if date, err := msg.Header.Date(); err == nil {
		sentAt = &date
	}

	return subject, sender, sentAt, nil
}

func ShortSubject(subject string) string {
	if (len(subject)) > 30 {
		subject = subject[:30] + "..."
	}
	return subject
}
