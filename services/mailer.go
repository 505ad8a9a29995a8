package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/daylistio/daylist/pkg/core"
)

// Mailer sends templated HTML mail. The SMTP implementation is swapped for
// a recording fake in tests.
type Mailer interface {
	Send(ctx context.Context, to, subject string, htmlBody []byte) error
}

// SMTPConfig configures the SMTP mail dispatcher
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SMTPMailer dispatches mail over plain-auth SMTP
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer creates an SMTP mail dispatcher
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// LogMailer logs outbound mail instead of delivering it. Used when no
// SMTP host is configured, typically in local development.
type LogMailer struct {
	Logger core.Logger
}

// Send logs the message envelope
func (m *LogMailer) Send(_ context.Context, to, subject string, _ []byte) error {
	m.Logger.WithFields(map[string]interface{}{"to": to, "subject": subject}).
		Info("mail delivery skipped, no smtp host configured")
	return nil
}

// Send delivers one HTML message
func (m *SMTPMailer) Send(_ context.Context, to, subject string, htmlBody []byte) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(htmlBody)

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
