// Package mail envía la planilla diaria por SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/cipa-correagro/notas-credito/pkg/config"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

// ErrDisabled faltan credenciales o destinatarios.
var ErrDisabled = errors.New("mail: envío no configurado")

// Dialer abstrae la conexión SMTP (gomail.Dialer en producción).
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender arma y envía el correo con los adjuntos del día.
type Sender struct {
	cfg    config.MailConfig
	dialer Dialer
	log    *logger.Logger
}

// Option configura el Sender.
type Option func(*Sender)

// WithDialer reemplaza el dialer SMTP (tests).
func WithDialer(d Dialer) Option {
	return func(s *Sender) { s.dialer = d }
}

// NewSender construye el Sender a partir de MailConfig.
func NewSender(cfg config.MailConfig, log *logger.Logger, opts ...Option) *Sender {
	s := &Sender{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// Message construye el mensaje de la fecha con los archivos adjuntos.
func (s *Sender) Message(date time.Time, attachments ...string) *gomail.Message {
	day := date.Format("2006-01-02")
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.Username)
	m.SetHeader("To", s.cfg.Recipients...)
	m.SetHeader("Subject", "Facturas procesadas "+day)

	body := fmt.Sprintf("Adjunto la planilla de facturas procesadas del %s.\n", day)
	if len(attachments) == 0 {
		body = fmt.Sprintf("No hubo facturas aceptadas el %s.\n", day)
	}
	m.SetBody("text/plain", body)
	for _, path := range attachments {
		m.Attach(path, gomail.Rename(filepath.Base(path)))
	}
	return m
}

// Send envía el correo del día. Devuelve ErrDisabled si la configuración no lo permite.
func (s *Sender) Send(ctx context.Context, date time.Time, attachments ...string) error {
	if !s.cfg.Enabled() {
		return ErrDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.Message(date, attachments...)); err != nil {
		return fmt.Errorf("mail: enviar: %w", err)
	}
	s.log.Info().
		Str("date", date.Format("2006-01-02")).
		Strs("to", s.cfg.Recipients).
		Int("attachments", len(attachments)).
		Msg("correo enviado")
	return nil
}
