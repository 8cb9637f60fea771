package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ariefcatur/go-fulfillment/internal/config"
	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth

	// send is smtp.SendMail outside tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(c config.SMTP) (*SMTPMailer, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if c.From == "" {
		return nil, fmt.Errorf("SMTP_FROM not set")
	}
	var auth smtp.Auth
	if c.User != "" {
		auth = smtp.PlainAuth("", c.User, c.Password, c.Host)
	}
	return &SMTPMailer{
		Addr: c.Host + ":" + c.Port,
		From: c.From,
		Auth: auth,
		send: smtp.SendMail,
	}, nil
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := []byte(
		"From: " + m.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)
	if err := m.send(m.Addr, m.Auth, m.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// LogMailer only logs. Used when no SMTP server is configured.
type LogMailer struct{ Log *zap.Logger }

func (m LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.Log.Info("mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// Render produces the subject and plain-text body of a confirmation mail.
func Render(c Confirmation) (subject, body string) {
	subject = "Order " + c.OrderID + " confirmed"

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", c.Name)
	fmt.Fprintf(&b, "Thanks for your order %s placed on %s.\n\n", c.OrderID, c.OrderDate.Format("2006-01-02 15:04"))
	for _, l := range c.Lines {
		fmt.Fprintf(&b, "  %s  x%d  @ %s  = %s\n", l.VariantID, l.Quantity, l.Price.StringFixed(2), l.Total.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", c.SubTotal.StringFixed(2))
	fmt.Fprintf(&b, "Shipping: %s\n", c.ShippingCost.StringFixed(2))
	fmt.Fprintf(&b, "Total:    %s\n", c.Total.StringFixed(2))
	fmt.Fprintf(&b, "Payment:  %s\n\n", c.PaymentMethod)
	fmt.Fprintf(&b, "Ship to:\n  %s\n  %s\n  %s\n", c.ShipName, c.ShipPhone, c.ShipAddress)
	return subject, b.String()
}
