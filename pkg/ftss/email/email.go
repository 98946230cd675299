// Package email abstracts the outbound mail provider.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

// Sender delivers a message to a list of recipients. contentType is
// "text/plain" or "text/html".
type Sender interface {
	Send(ctx context.Context, to []string, subject, body, contentType string) error
}

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender sends mail over plain SMTP.
type SMTPSender struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewSMTPSender creates a sender for the given configuration.
func NewSMTPSender(config Config) *SMTPSender {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &SMTPSender{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// NewSenderFromEnv builds an SMTPSender from FTSS_SMTP_* environment
// variables. Returns nil when no host is configured.
func NewSenderFromEnv() *SMTPSender {
	host := os.Getenv("FTSS_SMTP_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("FTSS_SMTP_PORT")
	if port == "" {
		port = "587"
	}
	return NewSMTPSender(Config{
		Host:     host,
		Port:     port,
		Username: os.Getenv("FTSS_SMTP_USERNAME"),
		Password: os.Getenv("FTSS_SMTP_PASSWORD"),
		From:     os.Getenv("FTSS_SMTP_FROM"),
		FromName: os.Getenv("FTSS_SMTP_FROM_NAME"),
	})
}

// Send delivers the message to all recipients in a single SMTP exchange.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body, contentType string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	if contentType == "" {
		contentType = "text/plain"
	}
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: %s; charset=\"UTF-8\"\r\n"+
			"\r\n%s\r\n",
		strings.Join(to, ", "), from, subject, contentType, body,
	))

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
