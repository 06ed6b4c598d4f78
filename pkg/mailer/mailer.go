package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"github.com/rs/zerolog"
)

// Config carries SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

// Service delivers notification emails over SMTP with mandatory STARTTLS.
type Service struct {
	dialer *mail.Dialer
	sender string
	logger zerolog.Logger
}

// New constructs a mailer. Returns an error when the SMTP host or sender is missing.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Host == "" || cfg.Sender == "" {
		return nil, fmt.Errorf("smtp host and sender must be provided")
	}

	port := cfg.Port
	if port <= 0 {
		port = 587
	}

	dialer := mail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	dialer.StartTLSPolicy = mail.MandatoryStartTLS
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}

	return &Service{
		dialer: dialer,
		sender: cfg.Sender,
		logger: logger.With().Str("component", "mailer").Logger(),
	}, nil
}

// Send delivers one message to the given recipients.
func (s *Service) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}

	message := mail.NewMessage()
	message.SetHeader("From", s.sender)
	message.SetHeader("To", to...)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Debug().Strs("to", to).Str("subject", subject).Msg("mail delivered")

	return nil
}
