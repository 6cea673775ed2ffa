package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Message is a templated notification. Href/CTALabel are optional; when
// present the rendered mail carries an action link.
type Message struct {
	To       string
	Subject  string
	Body     string
	Closure  string
	CTALabel string
	Href     string
}

// Sender delivers a single message synchronously.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender delivers messages over a plain SMTP relay.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	publicURL string
}

func NewSMTPSender(host string, port int, username string, password string, from string, publicURL string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		from:      from,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *SMTPSender) Send(msg Message) error {
	body := s.render(msg)

	headers := []string{
		"From: " + s.from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	raw := []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.from, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) render(msg Message) string {
	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(msg.Body)
	b.WriteString("</p>")

	if msg.Href != "" {
		label := msg.CTALabel
		if label == "" {
			label = "Open"
		}
		fmt.Fprintf(&b, `<p><a href="%s/%s">%s</a></p>`, s.publicURL, strings.TrimLeft(msg.Href, "/"), label)
	}

	if msg.Closure != "" {
		b.WriteString("<p>")
		b.WriteString(msg.Closure)
		b.WriteString("</p>")
	}

	return b.String()
}
