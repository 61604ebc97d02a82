package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

// UnlinkedNotice describes a loan application whose CRM deal disappeared
type UnlinkedNotice struct {
	ApplicationID string
	Name          string
	FormerDealID  string
	At            time.Time
}

// SendUnlinkedNotice tells the operations mailbox that a deal link was dropped.
// Without OPS_EMAIL configured the notice is only logged.
func (s *Sender) SendUnlinkedNotice(n UnlinkedNotice) error {
	if s.cfg.OpsEmail == "" {
		s.logger.WithField("application_id", n.ApplicationID).Warn("OPS_EMAIL not set, unlinked notice not sent")
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.OpsEmail}
	e.Subject = fmt.Sprintf("Loan application %s lost its CRM deal", displayName(n))

	var body strings.Builder
	body.WriteString("Hello,\n\n")
	fmt.Fprintf(&body,
		"The CRM deal %s linked to loan application %s (%s) no longer exists.\n"+
			"The application was unlinked on %s and keeps its last known terms.\n"+
			"Export it again or link it to the correct deal.\n",
		n.FormerDealID, n.ApplicationID, displayName(n), n.At.UTC().Format("2006-01-02 15:04:05 MST"),
	)
	body.WriteString("\nLoan Service")
	e.Text = []byte(body.String())

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send unlinked notice for %s: %v", n.ApplicationID, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.OpsEmail, e.Subject)
	return nil
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

func displayName(n UnlinkedNotice) string {
	if n.Name == "" {
		return "(unnamed)"
	}
	return n.Name
}
