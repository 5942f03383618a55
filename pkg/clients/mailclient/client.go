// Package mailclient sends booking emails over SMTP
package mailclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

const defaultPort = 587

// Options holds the SMTP server and credentials
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Client sends email over SMTP. Without a host or username it runs in simulate mode:
// messages are logged and reported as simulated deliveries.
type Client struct {
	smtp   *mail.Client
	logger *zap.Logger
}

// NewClient creates an SMTP client, or a simulating one when credentials are missing
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(opts.Host) == "" || strings.TrimSpace(opts.Username) == "" {
		logger.Warn("SMTP credentials not configured, emails will be simulated")
		return &Client{logger: logger}, nil
	}

	port := opts.Port
	if port == 0 {
		port = defaultPort
	}

	c, err := mail.NewClient(
		opts.Host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(opts.Username),
		mail.WithPassword(opts.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &Client{smtp: c, logger: logger}, nil
}

// Simulated reports whether the client only logs messages
func (c *Client) Simulated() bool {
	return c.smtp == nil
}

// Send delivers one HTML email. The context bounds the dial and the send.
func (c *Client) Send(ctx context.Context, email model.Email) (model.Delivery, error) {
	msg, err := buildMessage(email)
	if err != nil {
		return model.Delivery{}, err
	}

	if c.Simulated() {
		c.logger.Info("Simulated email",
			zap.String("to", email.To),
			zap.String("subject", email.Subject))
		return model.Delivery{Simulated: true}, nil
	}

	if err := c.smtp.DialAndSendWithContext(ctx, msg); err != nil {
		return model.Delivery{}, fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}

	var id string
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		id = ids[0]
	}
	return model.Delivery{ID: id}, nil
}

func buildMessage(email model.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(email.FromName, email.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", email.From, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, email.HTML)
	return msg, nil
}
