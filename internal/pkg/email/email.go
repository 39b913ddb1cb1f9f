package email

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/machus/backend/internal/pkg/metrics"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer sends the account mails of the registration and password reset flows.
type Mailer interface {
	SendVerificationEmail(toEmail, token string) error
	SendPasswordResetEmail(toEmail, token string) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// Dialer is the part of *gomail.Dialer the mailer uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers through gomail. Without credentials it only logs the link.
type SMTPMailer struct {
	config SMTPConfig
	dialer Dialer
	logger zerolog.Logger
}

// NewSMTPMailer creates a new SMTPMailer
func NewSMTPMailer(config SMTPConfig, logger zerolog.Logger) *SMTPMailer {
	m := &SMTPMailer{
		config: config,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
	if config.Host != "" && config.Username != "" {
		m.dialer = gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	}
	return m
}

// WithDialer replaces the SMTP dialer.
func (m *SMTPMailer) WithDialer(d Dialer) *SMTPMailer {
	m.dialer = d
	return m
}

func (m *SMTPMailer) link(path, toEmail, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", toEmail)
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(m.config.FrontendURL, "/"), path, q.Encode())
}

func (m *SMTPMailer) send(kind, toEmail, subject, body, link string) error {
	if m.dialer == nil {
		m.logger.Warn().
			Str("kind", kind).
			Str("toEmail", toEmail).
			Str("link", link).
			Msg("SMTP not configured, mail not sent")
		metrics.MailSentTotal.WithLabelValues(kind, "skipped").Inc()
		return nil
	}

	from := m.config.From
	if from == "" {
		from = m.config.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		metrics.MailSentTotal.WithLabelValues(kind, "error").Inc()
		m.logger.Error().Err(err).Str("kind", kind).Str("toEmail", toEmail).Msg("Failed to send mail")
		return fmt.Errorf("send %s mail: %w", kind, err)
	}

	metrics.MailSentTotal.WithLabelValues(kind, "sent").Inc()
	m.logger.Info().Str("kind", kind).Str("toEmail", toEmail).Msg("Mail sent")
	return nil
}

// SendVerificationEmail mails the 24h verification link.
func (m *SMTPMailer) SendVerificationEmail(toEmail, token string) error {
	link := m.link("verify-email", toEmail, token)
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Welcome to M@CHUS</h2>
<p>Click the link below to verify your email address:</p>
<p><a href="%s">Verify email</a></p>
<p>The link expires in 24 hours. If you did not register, ignore this mail.</p>
</div>`, link)
	return m.send("verification", toEmail, "Verify your M@CHUS account", body, link)
}

// SendPasswordResetEmail mails the 1h password reset link.
func (m *SMTPMailer) SendPasswordResetEmail(toEmail, token string) error {
	link := m.link("reset-password", toEmail, token)
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Password reset</h2>
<p>Click the link below to choose a new password:</p>
<p><a href="%s">Reset password</a></p>
<p>The link expires in 1 hour. If you did not ask for a reset, ignore this mail.</p>
</div>`, link)
	return m.send("password_reset", toEmail, "Reset your M@CHUS password", body, link)
}
