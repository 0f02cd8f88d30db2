package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"time"
)

// Message is an outgoing email before serialization.
type Message struct {
	ID      string
	From    string
	To      string
	Subject string
	HTML    string
	Date    time.Time
}

// Bytes renders m as an RFC 5322 message with a single base64 encoded
// text/html part. Lines of the body are wrapped at 76 characters.
func (m *Message) Bytes() []byte {
	var b bytes.Buffer

	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}

	header("From", m.From)
	header("To", m.To)
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", m.Date.UTC().Format(time.RFC1123Z))
	if m.ID != "" {
		header("Message-ID", "<"+m.ID+">")
	}
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "base64")
	b.WriteString("\r\n")

	enc := base64.StdEncoding.EncodeToString([]byte(m.HTML))
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	if enc != "" {
		b.WriteString(enc)
		b.WriteString("\r\n")
	}

	return b.Bytes()
}
