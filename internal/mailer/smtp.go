// Package mailer implements [engine.Mailer] and [reminder.Mailer] over
// SMTP: OTP codes for DELETE_CUSTOMER_DATA, invoice delivery for
// SEND_INVOICE/PROVIDE_EMAIL, and payment-due reminder delivery.
//
// Composed the way the teacher never needed to — glyphoxa has no e-mail
// concern — so this package is grounded directly on the library pair
// SPEC_FULL §2a names for it: emersion/go-message builds the MIME
// body, emersion/go-sasl supplies the AUTH PLAIN mechanism, and the
// stdlib's net/smtp is the transport, since neither emersion library ships
// its own SMTP client.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"

	"github.com/shopvoice/shopvoice/internal/domain"
)

// Config holds the SMTP connection details, mirroring config.MailConfig.
type Config struct {
	SMTPAddr  string
	Username  string
	Password  string
	FromEmail string
}

// Mailer sends OTP, invoice, and reminder e-mails over SMTP.
type Mailer struct {
	cfg Config
}

// New builds a [Mailer] from cfg.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendOTP e-mails a DELETE_CUSTOMER_DATA one-time code.
func (m *Mailer) SendOTP(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your confirmation code to delete customer data is %s. It expires shortly; do not share it.", code)
	return m.send(to, "ShopVoice deletion confirmation code", body)
}

// SendInvoiceEmail e-mails a confirmed invoice.
func (m *Mailer) SendInvoiceEmail(ctx context.Context, to string, inv domain.Invoice) error {
	body := fmt.Sprintf("Invoice total: %s\n\nThank you for your business.", inv.Total.RupeeString())
	return m.send(to, "Your invoice", body)
}

// SendReminderEmail e-mails a scheduled payment-due reminder.
func (m *Mailer) SendReminderEmail(ctx context.Context, to string, r domain.Reminder) error {
	body := r.Message
	if body == "" {
		body = fmt.Sprintf("This is a reminder that %s is due.", r.Amount.RupeeString())
	}
	return m.send(to, "Payment reminder", body)
}

// send composes a plain-text MIME message and delivers it over SMTP.
func (m *Mailer) send(to, subject, body string) error {
	msg, err := m.compose(to, subject, body)
	if err != nil {
		return err
	}
	auth := newSASLAuth(m.cfg.Username, m.cfg.Password)
	return smtp.SendMail(m.cfg.SMTPAddr, auth, m.cfg.FromEmail, []string{to}, msg)
}

// compose builds the raw MIME message bytes for a plain-text e-mail.
func (m *Mailer) compose(to, subject, body string) ([]byte, error) {
	var h mail.Header
	h.SetAddressList("From", []*mail.Address{{Name: "ShopVoice", Address: m.cfg.FromEmail}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline part: %w", err)
	}
	pw, err := tw.CreateText()
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := pw.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("write message body: %w", err)
	}
	if err := pw.Close(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// saslAuth adapts a go-sasl PLAIN client to the net/smtp.Auth interface,
// since emersion/go-sasl and the stdlib SMTP client use different
// authentication-mechanism shapes.
type saslAuth struct {
	client sasl.Client
}

func newSASLAuth(username, password string) smtp.Auth {
	return &saslAuth{client: sasl.NewPlainClient("", username, password)}
}

func (a *saslAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	mech, ir, err := a.client.Start()
	if err != nil {
		return "", nil, err
	}
	return mech, ir, nil
}

func (a *saslAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	return a.client.Next(fromServer)
}
