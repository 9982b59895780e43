// Package notify emails report artifacts after a run.
//
// Delivery problems never fail a run: Send logs them at ERROR and reports
// whether the message was accepted.
package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/JonMunkholm/talentmetrics/internal/config"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// DefaultHost is the SendGrid API host.
const DefaultHost = "https://api.sendgrid.com"

const sendEndpoint = "/v3/mail/send"

// Attachment is a file carried by a message.
type Attachment struct {
	Filename string `validate:"required"`
	Type     string `validate:"required"`
	Content  []byte `validate:"required"`
}

// Message is one templated email.
type Message struct {
	Receivers   []string     `validate:"required,min=1,dive,required,email"`
	TemplateID  string       `validate:"required"`
	Attachments []Attachment `validate:"dive"`

	// Data fills the dynamic template.
	Data map[string]any
}

// Notifier delivers messages. Send returns true when the message was accepted.
type Notifier interface {
	Send(ctx context.Context, msg Message) bool
}

var validate = validator.New()

// Validate checks the message before it is sent.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return nil
}

// Noop discards every message. It is used when notification is disabled.
type Noop struct{}

// Send logs the skipped message.
func (Noop) Send(ctx context.Context, msg Message) bool {
	logging.FromContext(ctx).Debug("notification disabled", "receivers", len(msg.Receivers))
	return false
}

// SendGrid sends templated mail through the SendGrid v3 API.
type SendGrid struct {
	APIKey string
	Sender string
	Host   string
}

// New returns a SendGrid notifier when cfg enables notification and Noop otherwise.
func New(cfg config.NotifyConfig) Notifier {
	if !cfg.Enabled() {
		return Noop{}
	}
	return &SendGrid{APIKey: cfg.APIKey, Sender: cfg.Sender, Host: DefaultHost}
}

// Send builds and posts msg. Errors and rejected responses are logged.
func (s *SendGrid) Send(ctx context.Context, msg Message) bool {
	logger := logging.WithFields(ctx, "template_id", msg.TemplateID, "receivers", len(msg.Receivers))

	if err := msg.Validate(); err != nil {
		logger.Error("failed to send mail", "error", err)
		return false
	}

	host := s.Host
	if host == "" {
		host = DefaultHost
	}
	req := sendgrid.GetRequest(s.APIKey, sendEndpoint, host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(s.build(msg))

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		logger.Error("failed to send mail", "error", err)
		return false
	}
	if resp.StatusCode >= 300 {
		logger.Error("failed to send mail",
			"status", resp.StatusCode,
			"body", strings.TrimSpace(resp.Body),
		)
		return false
	}

	logger.Info("mail sent", "status", resp.StatusCode, "attachments", len(msg.Attachments))
	return true
}

func (s *SendGrid) build(msg Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", s.Sender))
	m.SetTemplateID(msg.TemplateID)

	p := mail.NewPersonalization()
	for _, r := range msg.Receivers {
		p.AddTos(mail.NewEmail("", r))
	}
	for k, v := range msg.Data {
		p.SetDynamicTemplateData(k, v)
	}
	m.AddPersonalizations(p)

	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.Type)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}
