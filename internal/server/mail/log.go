package mail

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/google/uuid"
)

// LogSender writes complete messages to an outbox writer and logs only the
// envelope. Links in the body carry live secrets, so they stay out of the log.
type LogSender struct {
	mu   sync.Mutex
	out  io.Writer
	from string
	log  logging.Logger
	now  func() time.Time
}

func NewLogSender(out io.Writer, from string, log logging.Logger) *LogSender {
	return &LogSender{out: out, from: from, log: log.With("module", "mail"), now: time.Now}
}

func (s *LogSender) Send(ctx context.Context, to, subject, html string) error {
	msg := &Message{
		ID:      uuid.NewString(),
		From:    s.from,
		To:      to,
		Subject: subject,
		HTML:    html,
		Date:    s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out != nil {
		if _, err := s.out.Write(msg.Bytes()); err != nil {
			return fmt.Errorf("write outbox: %w", err)
		}
		if _, err := io.WriteString(s.out, "\r\n"); err != nil {
			return fmt.Errorf("write outbox: %w", err)
		}
	}

	s.log.Info(ctx, "mail written to outbox", "to", to, "subject", subject, "message_id", msg.ID)
	return nil
}
