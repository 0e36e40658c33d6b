package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ConsoleChannel echoes notifications to a writer, typically stdout.
type ConsoleChannel struct {
	w io.Writer
}

func NewConsoleChannel(w io.Writer) *ConsoleChannel { return &ConsoleChannel{w: w} }

func (c *ConsoleChannel) Notify(p *Patron, message string) {
	fmt.Fprintf(c.w, "[notice] %s (%s): %s\n", p.Name, p.ID, message)
}

// MailSender delivers one raw RFC 5322 message.
type MailSender interface {
	Send(from string, to []string, msg []byte) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	Addr     string // host:port
	Username string
	Password string
}

func (s SMTPSender) Send(from string, to []string, msg []byte) error {
	var auth smtp.Auth
	if s.Username != "" {
		host := s.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	return smtp.SendMail(s.Addr, auth, from, to, msg)
}

// EmailChannel mails notifications to patrons that have an address on file.
// Deliveries are throttled; failures are logged and otherwise dropped.
type EmailChannel struct {
	from    string
	sender  MailSender
	limiter *rate.Limiter
	logger  *slog.Logger
	timeout time.Duration
}

// NewEmailChannel returns a channel sending at most perSecond messages per second.
func NewEmailChannel(from string, sender MailSender, perSecond float64, logger *slog.Logger) *EmailChannel {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &EmailChannel{
		from:    from,
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

func (e *EmailChannel) Notify(p *Patron, message string) {
	if strings.TrimSpace(p.Email) == "" {
		e.logger.Debug("skipping email notification, no address", "patron", p.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.limiter.Wait(ctx); err != nil {
		e.logger.Warn("email throttled", "patron", p.ID, "error", err)
		return
	}

	msgID := uuid.New().String()
	if err := e.sender.Send(e.from, []string{p.Email}, e.compose(msgID, p, message)); err != nil {
		e.logger.Error("send email", "patron", p.ID, "message_id", msgID, "error", err)
		return
	}
	e.logger.Info("email sent", "patron", p.ID, "message_id", msgID)
}

func (e *EmailChannel) compose(msgID string, p *Patron, message string) []byte {
	var sb strings.Builder
	domain := "localhost"
	if i := strings.LastIndex(e.from, "@"); i >= 0 {
		domain = e.from[i+1:]
	}
	fmt.Fprintf(&sb, "From: %s\r\n", e.from)
	fmt.Fprintf(&sb, "To: %s\r\n", p.Email)
	sb.WriteString("Subject: Library overdue notice\r\n")
	fmt.Fprintf(&sb, "Message-ID: <%s@%s>\r\n", msgID, domain)
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&sb, "Hello %s,\r\n\r\n%s\r\n", p.Name, message)
	return []byte(sb.String())
}
