package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"tutorial-scraper/internal/models"
	"tutorial-scraper/shared/config"
)

//go:embed digest.html
var digestTemplate string

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"minutes": func(seconds int) int { return (seconds + 59) / 60 },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}).Parse(digestTemplate))

// Digest is the post-run email listing newly stored tutorials
type Digest struct {
	Date      time.Time
	Report    models.RunReport
	Tutorials []models.TutorialRecord
}

type Sender struct {
	config *config.EmailConfig
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
	}
}

// SendDigest mails the digest; a digest without new tutorials is not sent
func (s *Sender) SendDigest(d *Digest) error {
	if d == nil {
		return fmt.Errorf("digest cannot be nil")
	}

	if len(d.Tutorials) == 0 {
		return nil // Nothing new to report
	}

	body, err := RenderDigest(d)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(Subject(d), body)
}

// Subject is the digest's subject line
func Subject(d *Digest) string {
	return fmt.Sprintf("Tutorial Digest - %d New Tutorials (%s)", len(d.Tutorials), d.Date.Format("Jan 2, 2006"))
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	return s.sendViaSMTP(subject, htmlBody)
}

func (s *Sender) sendViaSMTP(subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.config.ToEmail, s.config.FromEmail, subject, body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.FromEmail, to, msg)
}

// RenderDigest renders the HTML body of d
func RenderDigest(d *Digest) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
