package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/Caolboy/LABERS-HOST/config"
	"gopkg.in/gomail.v2"
)

const (
	TemplateOTPVerification = "otp_verification.html"
	TemplateBookingMade     = "booking_made.html"
)

//go:embed templates/*.html
var templateFS embed.FS

type Message struct {
	Template string
	Vars     map[string]any
	To       string
	Subject  string
}

// Mailer delivers a rendered template. A returned error means the message was
// not sent.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type renderer struct {
	templates *template.Template
}

func newRenderer() (*renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &renderer{templates: t}, nil
}

func (r *renderer) render(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, msg.Template, msg.Vars); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

type SMTPMailer struct {
	*renderer
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTPMailer{renderer: r, dialer: d, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := m.render(msg)
	if err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer renders messages and writes them to the log instead of sending
// them. Used when no SMTP host is configured.
type LogMailer struct {
	*renderer
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) (*LogMailer, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &LogMailer{renderer: r, logger: logger}, nil
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	body, err := m.render(msg)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail not sent, smtp disabled", "to", msg.To, "subject", msg.Subject, "template", msg.Template)
	m.logger.DebugContext(ctx, "mail body", "to", msg.To, "body", body)
	return nil
}

// New returns an SMTP mailer, or a LogMailer when cfg.Host is empty.
func New(cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	if cfg.Host == "" {
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
