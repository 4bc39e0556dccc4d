package queues

import (
	"fmt"
	"net/smtp"
)

// SMTPSender delivers email jobs over plain SMTP.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: host + ":" + port,
		from: from,
		auth: auth,
	}
}

func (s *SMTPSender) Send(job EmailJob) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nHi %s,\r\n\r\n%s\r\n\r\n%s\r\n",
		s.from, job.To, job.Subject, job.Name, job.Content, job.TargetURL,
	)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{job.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
