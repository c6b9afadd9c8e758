package mail_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/cipa-correagro/notas-credito/internal/infrastructure/mail"
	"github.com/cipa-correagro/notas-credito/pkg/config"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func mailConfig() config.MailConfig {
	return config.MailConfig{
		Server: "smtp.test", Port: 587,
		Username: "bot@cipa.com.co", Password: "secreto",
		Recipients: []string{"a@cipa.com.co", "b@cipa.com.co"},
	}
}

var day = time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)

func TestSend(t *testing.T) {
	d := &fakeDialer{}
	s := mail.NewSender(mailConfig(), logger.Nop(), mail.WithDialer(d))

	require.NoError(t, s.Send(context.Background(), day, "/tmp/facturas_20251118.xlsx"))
	require.Len(t, d.sent, 1)
	m := d.sent[0]
	assert.Equal(t, []string{"a@cipa.com.co", "b@cipa.com.co"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Facturas procesadas 2025-11-18"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"bot@cipa.com.co"}, m.GetHeader("From"))
}

func TestSend_NoConfigurado(t *testing.T) {
	cfg := mailConfig()
	cfg.Recipients = nil
	d := &fakeDialer{}

	err := mail.NewSender(cfg, logger.Nop(), mail.WithDialer(d)).Send(context.Background(), day)
	assert.ErrorIs(t, err, mail.ErrDisabled)
	assert.Empty(t, d.sent)
}

func TestSend_ErrorSMTP(t *testing.T) {
	d := &fakeDialer{err: errors.New("535 auth failed")}
	err := mail.NewSender(mailConfig(), logger.Nop(), mail.WithDialer(d)).Send(context.Background(), day)
	assert.ErrorContains(t, err, "535")
}

func TestSend_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &fakeDialer{}
	err := mail.NewSender(mailConfig(), logger.Nop(), mail.WithDialer(d)).Send(ctx, day)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.sent)
}
