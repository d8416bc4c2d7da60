package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/version"

	"go.uber.org/zap"
)

// EmailChannel sends plain text mail over SMTP
type EmailChannel struct {
	config *config.EmailConfig
	logger *zap.Logger
}

// NewEmailChannel creates new email channel
func NewEmailChannel(cfg *config.EmailConfig, logger *zap.Logger) (*EmailChannel, error) {
	if cfg.SMTPServer == "" || cfg.SMTPPort == 0 {
		return nil, fmt.Errorf("SMTP server and port are required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("sender and recipients are required")
	}

	return &EmailChannel{
		config: cfg,
		logger: logger,
	}, nil
}

// Type returns the channel type
func (c *EmailChannel) Type() ChannelType {
	return ChannelEmail
}

// Send delivers the message in a single SMTP session
func (c *EmailChannel) Send(ctx context.Context, msg *Message) error {
	addr := net.JoinHostPort(c.config.SMTPServer, strconv.Itoa(c.config.SMTPPort))
	tlsConfig := &tls.Config{
		ServerName: c.config.SMTPServer,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := c.dial(ctx, addr, tlsConfig)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, c.config.SMTPServer)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if !c.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if c.config.Username != "" {
		auth := smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.SMTPServer)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	from := cleanEmailAddress(c.config.From)
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM failed for %s: %w", from, err)
	}

	for _, rcpt := range cleanEmailAddresses(c.config.To) {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	body := buildEmailMessage(c.config.From, c.config.To, msg.Subject, msg.Text, msg.ID, msg.At)
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message writer: %w", err)
	}

	return client.Quit()
}

// dial opens the SMTP connection, implicit TLS when configured
func (c *EmailChannel) dial(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	dialer := &net.Dialer{}
	if c.config.UseTLS {
		conn, err := (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS connection: %w", err)
		}
		return conn, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

// Close is a no-op, every send uses its own session
func (c *EmailChannel) Close() error {
	return nil
}

// buildEmailMessage builds email message
func buildEmailMessage(from string, to []string, subject, body, id string, at time.Time) []byte {
	var msg bytes.Buffer

	host := "localhost"
	if i := strings.LastIndex(cleanEmailAddress(from), "@"); i >= 0 {
		host = cleanEmailAddress(from)[i+1:]
	}

	headers := [][2]string{
		{"From", from},
		{"To", strings.Join(to, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", at.Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", id, host)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
		{"Content-Transfer-Encoding", "8bit"},
		{"X-Mailer", version.UserAgent()},
	}

	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}

	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	msg.WriteString("\r\n")

	return msg.Bytes()
}

// cleanEmailAddress cleans email address by removing display name and angle brackets
func cleanEmailAddress(addr string) string {
	if idx := strings.LastIndex(addr, "<"); idx >= 0 {
		return strings.Trim(addr[idx:], "<>")
	}
	return strings.TrimSpace(addr)
}

// cleanEmailAddresses cleans a list of email addresses
func cleanEmailAddresses(addrs []string) []string {
	cleaned := make([]string, len(addrs))
	for i, addr := range addrs {
		cleaned[i] = cleanEmailAddress(addr)
	}
	return cleaned
}
