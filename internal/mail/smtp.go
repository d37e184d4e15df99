package mail

import (
	"bytes"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
)

// SMTPSender delivers mail over plain-auth SMTP. Port 465 deployments are
// expected to terminate TLS in front of the server; STARTTLS on 587 is
// negotiated by the smtp package itself.
type SMTPSender struct{}

// Send builds an HTML mail message and submits it to the configured server.
func (SMTPSender) Send(cfg Config, from, subject string, htmlBody []byte) error {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", cfg.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(htmlBody)

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)

	if err := smtp.SendMail(addr, auth, cfg.User, []string{cfg.Recipient}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
