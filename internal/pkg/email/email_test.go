package email

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSendVerificationEmail(t *testing.T) {
	d := &recordingDialer{}
	m := NewSMTPMailer(SMTPConfig{From: "noreply@machus.app", FrontendURL: "http://localhost:5173/"}, zerolog.Nop()).WithDialer(d)

	require.NoError(t, m.SendVerificationEmail("alice@shanghaitech.edu.cn", "tok"))
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"alice@shanghaitech.edu.cn"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"noreply@machus.app"}, msg.GetHeader("From"))

	var body strings.Builder
	_, err := msg.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "verify-email?")
}

func TestSend_NotConfiguredIsNoop(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{}, zerolog.Nop())
	assert.NoError(t, m.SendPasswordResetEmail("a@shanghaitech.edu.cn", "tok"))
}

func TestSend_DialError(t *testing.T) {
	d := &recordingDialer{err: errors.New("connection refused")}
	m := NewSMTPMailer(SMTPConfig{}, zerolog.Nop()).WithDialer(d)

	err := m.SendPasswordResetEmail("a@shanghaitech.edu.cn", "tok")
	assert.ErrorContains(t, err, "connection refused")
}

func TestLink(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{FrontendURL: "https://machus.app/"}, zerolog.Nop())
	assert.Equal(t, "https://machus.app/reset-password?email=a%40b.cn&token=t", m.link("reset-password", "a@b.cn", "t"))
}
