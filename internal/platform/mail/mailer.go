// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Package mail delivers transactional email for account lifecycle events.

It speaks plain SMTP with STARTTLS so the platform works with any standard
relay (SES, Postmark, a corporate exchange) without provider SDKs.

Delivery is best-effort: account operations never fail because an email
could not be sent. Callers log delivery errors and move on.
*/
package mail

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Notifier is the outbound notification surface used by the account services.
//
// # Why an interface?
//
// Services depend on this interface rather than the SMTP implementation so
// tests can capture notifications and local development can run without a relay.
type Notifier interface {
	// SendWelcome greets a newly registered account holder.
	SendWelcome(toEmail, displayName string) error

	// SendAnalystPending tells a new analyst that identity documents
	// are required before their account can be activated.
	SendAnalystPending(toEmail, displayName string) error

	// SendApplicationSubmitted confirms an analyst application has entered review.
	SendApplicationSubmitted(toEmail, displayName string) error

	// SendApplicationApproved tells an analyst their account is now active.
	SendApplicationApproved(toEmail, displayName string) error

	// SendApplicationRejected tells an analyst their application was declined.
	SendApplicationRejected(toEmail, displayName, reason string) error

	// SendPasswordReset delivers a one-time password reset link.
	SendPasswordReset(toEmail, resetLink string) error
}

// # SMTP Delivery

// SMTPMailer sends mail through a standard SMTP relay with STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer constructs a mailer for the given relay.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (mailer *SMTPMailer) SendWelcome(toEmail, displayName string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour IP Platform account has been created. You can now sign in and start searching patents.\n\nThe IP Platform Team",
		displayName,
	)
	return mailer.send(toEmail, "Welcome to IP Platform", body)
}

func (mailer *SMTPMailer) SendAnalystPending(toEmail, displayName string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour analyst account has been created. Before it can be activated, please sign in and upload your identity documents for verification.\n\nThe IP Platform Team",
		displayName,
	)
	return mailer.send(toEmail, "Action required: upload your identity documents", body)
}

func (mailer *SMTPMailer) SendApplicationSubmitted(toEmail, displayName string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour analyst application has been submitted and is now awaiting review. We will notify you once a decision has been made.\n\nThe IP Platform Team",
		displayName,
	)
	return mailer.send(toEmail, "Your analyst application has been submitted", body)
}

func (mailer *SMTPMailer) SendApplicationApproved(toEmail, displayName string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nGood news: your analyst application has been approved. Your account is now fully active.\n\nThe IP Platform Team",
		displayName,
	)
	return mailer.send(toEmail, "Your analyst application has been approved", body)
}

func (mailer *SMTPMailer) SendApplicationRejected(toEmail, displayName, reason string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nUnfortunately your analyst application has been declined.\n\nReason: %s\n\nYou may update your documents and submit again.\n\nThe IP Platform Team",
		displayName, reason,
	)
	return mailer.send(toEmail, "Your analyst application has been declined", body)
}

func (mailer *SMTPMailer) SendPasswordReset(toEmail, resetLink string) error {
	body := fmt.Sprintf(
		"A password reset was requested for this address.\n\nUse the link below within 60 minutes to choose a new password:\n\n%s\n\nIf you did not request this, you can safely ignore this email.\n\nThe IP Platform Team",
		resetLink,
	)
	return mailer.send(toEmail, "Reset your IP Platform password", body)
}

// send performs one SMTP transaction: connect, STARTTLS, auth, deliver.
func (mailer *SMTPMailer) send(toEmail, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", mailer.host, mailer.port)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("mail: smtp dial: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: mailer.host, MinVersion: tls.VersionTLS12}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("mail: smtp starttls: %w", err)
	}

	if mailer.username != "" {
		auth := smtp.PlainAuth("", mailer.username, mailer.password, mailer.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mail: smtp auth: %w", err)
		}
	}

	if err := client.Mail(mailer.from); err != nil {
		return fmt.Errorf("mail: smtp from: %w", err)
	}
	if err := client.Rcpt(toEmail); err != nil {
		return fmt.Errorf("mail: smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: smtp data: %w", err)
	}

	message := buildMessage(mailer.from, toEmail, subject, body)
	if _, err := writer.Write([]byte(message)); err != nil {
		return fmt.Errorf("mail: smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("mail: smtp close: %w", err)
	}

	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("mail: smtp quit: %w", err)
	}

	return nil
}

// buildMessage assembles RFC 5322 headers and a plain-text body.
func buildMessage(from, to, subject, body string) string {
	lines := []string{
		"From: IP Platform <" + from + ">",
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return strings.Join(lines, "\r\n")
}

// # Development Fallback

// LogMailer is a [Notifier] that only logs. Used when no SMTP host is
// configured so local environments never need a mail relay.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs the logging notifier.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (mailer *LogMailer) SendWelcome(toEmail, displayName string) error {
	mailer.log("welcome", toEmail)
	return nil
}

func (mailer *LogMailer) SendAnalystPending(toEmail, displayName string) error {
	mailer.log("analyst_pending", toEmail)
	return nil
}

func (mailer *LogMailer) SendApplicationSubmitted(toEmail, displayName string) error {
	mailer.log("application_submitted", toEmail)
	return nil
}

func (mailer *LogMailer) SendApplicationApproved(toEmail, displayName string) error {
	mailer.log("application_approved", toEmail)
	return nil
}

func (mailer *LogMailer) SendApplicationRejected(toEmail, displayName, reason string) error {
	mailer.log("application_rejected", toEmail)
	return nil
}

func (mailer *LogMailer) SendPasswordReset(toEmail, resetLink string) error {
	mailer.logger.Info("mail_skipped",
		slog.String("template", "password_reset"),
		slog.String("to", toEmail),
		slog.String("link", resetLink),
	)
	return nil
}

func (mailer *LogMailer) log(template, toEmail string) {
	mailer.logger.Info("mail_skipped",
		slog.String("template", template),
		slog.String("to", toEmail),
	)
}
