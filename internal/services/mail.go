package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"sync"

	"govportal/internal/config"
	"govportal/internal/models"

	"go.uber.org/zap"
)

var reviewTemplate = template.Must(template.New("review").Parse(`<p>Hello {{.Name}},</p>
<p>Your {{.Type}} complaint for {{.Area}} is now <strong>{{.Status}}</strong>.</p>
{{if .AdminNotes}}<p>Notes from the reviewing officer: {{.AdminNotes}}</p>{{end}}
<p>Reference: {{.ID}}</p>`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailService sends complaint notices over SMTP. It is a no-op when SMTP is
// not configured.
type MailService struct {
	cfg     config.SMTP
	enabled bool
	send    sendFunc
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewMailService(cfg config.SMTP, log *zap.Logger) *MailService {
	enabled := cfg.Enabled()
	if !enabled {
		log.Info("mail service disabled: SMTP settings incomplete")
	}
	return &MailService{cfg: cfg, enabled: enabled, send: smtp.SendMail, log: log}
}

func (s *MailService) sendAsync(to []string, subject, body string) {
	if !s.enabled {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: Citizen Services <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.cfg.From, subject, mime, body))

		if err := s.send(addr, auth, s.cfg.From, to, msg); err != nil {
			s.log.Error("send email failed", zap.Strings("to", to), zap.Error(err))
			return
		}
		s.log.Info("email sent", zap.Strings("to", to), zap.String("subject", subject))
	}()
}

// Wait blocks until queued messages have been handed to the SMTP server.
func (s *MailService) Wait() {
	s.wg.Wait()
}

func (s *MailService) ComplaintReviewed(c *models.Complaint) {
	var buf bytes.Buffer
	if err := reviewTemplate.Execute(&buf, c); err != nil {
		s.log.Error("render complaint email", zap.Error(err))
		return
	}
	s.sendAsync([]string{c.Email}, fmt.Sprintf("Your complaint is now %s", c.Status), buf.String())
}
