package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(ctx context.Context, e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send:   sendMail,
	}
}

// NotifyTransaction mails the back-office mailbox about a committed deposit or withdrawal
func (s *Sender) NotifyTransaction(ctx context.Context, account *models.Account, entry *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := s.transactionEmail(account, entry)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(ctx, e, addr, auth); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", entry.Kind, err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.NotifyEmail, e.Subject)
	return nil
}

func (s *Sender) transactionEmail(account *models.Account, entry *models.Transaction) (*email.Email, error) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.NotifyEmail}

	var body string
	switch entry.Kind {
	case models.TransactionDeposit:
		e.Subject = fmt.Sprintf("Deposit Notification: account %d", account.ID)
		body = fmt.Sprintf("Account %d has been credited with %s.\n", account.ID, entry.Amount.StringFixed(2))
	case models.TransactionWithdrawal:
		e.Subject = fmt.Sprintf("Withdrawal Notification: account %d", account.ID)
		body = fmt.Sprintf("An amount of %s has been withdrawn from account %d.\n", entry.Amount.StringFixed(2), account.ID)
	default:
		return nil, fmt.Errorf("unknown transaction kind %q", entry.Kind)
	}
	body += fmt.Sprintf(
		"Transaction time: %s\nCurrent balance: %s\n",
		entry.CreatedAt.Format(time.DateTime), account.Balance.StringFixed(2),
	)
	body += "\nBank Back Office"
	e.Text = []byte(body)
	return e, nil
}

// sendMail delivers e over one SMTP session bound to ctx. email.Email.Send
// dials without a timeout, so the session is driven here and the message
// body comes from e.Bytes.
func sendMail(ctx context.Context, e *email.Email, addr string, auth smtp.Auth) error {
	from, err := mail.ParseAddress(e.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	msg, err := e.Bytes()
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid smtp address %q: %w", addr, err)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	// Closing the connection unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	err = smtpSession(conn, host, auth, from.Address, recipients(e), msg)
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}

func smtpSession(conn net.Conn, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func recipients(e *email.Email) []string {
	all := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	for _, list := range [][]string{e.To, e.Cc, e.Bcc} {
		for _, raw := range list {
			if addr, err := mail.ParseAddress(raw); err == nil {
				all = append(all, addr.Address)
			}
		}
	}
	return all
}
