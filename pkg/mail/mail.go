package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/mvlzerz/loan-reminder/pkg/metrics"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var errNoReceivers = errors.New("no receivers given")

type Sender interface {
	Send(receivers []string, subject, body string) error
	GetHost() string
	GetPort() int
}

// Session is an open, authenticated connection to the mail server. A session
// that lost its connection after a failed send reconnects on the next Send.
type Session interface {
	Sender
	Close() error
}

// Transport opens mail sessions. One session is opened per reminder batch.
type Transport interface {
	Open(ctx context.Context) (Session, error)
}

// SMTPConfig holds the settings of the outgoing SMTP server.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	SenderAddress      string
	SenderName         string
	InsecureSkipVerify bool
}

type SMTPTransport struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
	log           *zap.SugaredLogger
}

func NewSMTPTransport(cfg SMTPConfig, log *zap.SugaredLogger) *SMTPTransport {
	log = log.Named("mail")
	log.Infow("Initializing SMTP transport", "host", cfg.Host, "port", cfg.Port, "user", cfg.Username)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for test relays
	}

	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = cfg.Username
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "Mvlzerz App"
	}

	return &SMTPTransport{
		dialer:        d,
		senderAddress: senderAddr,
		senderName:    senderName,
		log:           log,
	}
}

// Open connects and authenticates against the SMTP server.
func (t *SMTPTransport) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := t.dial()
	if err != nil {
		return nil, err
	}
	t.log.Debugw("SMTP session opened", "host", t.dialer.Host, "port", t.dialer.Port)
	return &smtpSession{transport: t, conn: conn}, nil
}

func (t *SMTPTransport) dial() (gomail.SendCloser, error) {
	conn, err := t.dialer.Dial()
	if err != nil {
		metrics.MailDialFailure.WithLabelValues(t.dialer.Host).Inc()
		return nil, fmt.Errorf("failed to connect to %s:%d: %w", t.dialer.Host, t.dialer.Port, err)
	}
	return conn, nil
}

func (t *SMTPTransport) GetHost() string {
	return t.dialer.Host
}

func (t *SMTPTransport) GetPort() int {
	return t.dialer.Port
}

type smtpSession struct {
	transport *SMTPTransport
	conn      gomail.SendCloser
}

func (s *smtpSession) Send(receivers []string, subject, body string) error {
	if len(receivers) == 0 {
		return errNoReceivers
	}
	log := s.transport.log

	if s.conn == nil {
		log.Debugw("Reconnecting to SMTP server", "host", s.GetHost())
		conn, err := s.transport.dial()
		if err != nil {
			metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
			return err
		}
		s.conn = conn
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.transport.senderAddress, s.transport.senderName)
	msg.SetHeader("To", receivers...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := gomail.Send(s.conn, msg); err != nil {
		// the connection state is unknown after a failed transaction
		if cerr := s.conn.Close(); cerr != nil {
			log.Debugw("Failed to close SMTP connection after send error", "error", cerr)
		}
		s.conn = nil
		metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
		return err
	}

	log.Debugw("Mail sent", "receivers", len(receivers), "subject", subject)
	metrics.MailSendSuccess.WithLabelValues(s.GetHost()).Inc()
	return nil
}

func (s *smtpSession) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *smtpSession) GetHost() string {
	return s.transport.GetHost()
}

func (s *smtpSession) GetPort() int {
	return s.transport.GetPort()
}
