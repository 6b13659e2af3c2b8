package notify

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink sends HTML mail through SMTP.
type EmailSink struct {
	from   string
	dialer mailSender
}

func NewEmailSink(host string, port int, user, password, from string) *EmailSink {
	if from == "" {
		from = user
	}
	return &EmailSink{from: from, dialer: gomail.NewDialer(host, port, user, password)}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(_ context.Context, to models.Member, msg Message) error {
	if to.Email == "" {
		return ErrUnreachable
	}

	body := fmt.Sprintf("<p>Hi <strong>%s</strong>,</p><p>%s</p>",
		html.EscapeString(to.Name), html.EscapeString(msg.Body))
	if msg.Link != "" {
		body += fmt.Sprintf(`<p><a href="%s">Open HGF Connect</a></p>`, html.EscapeString(msg.Link))
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", msg.Title)
	m.SetBody("text/html", body)

	return s.dialer.DialAndSend(m)
}
