package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jakechorley/volunteer-booking/internal/config"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/utils"
)

// SendInterval is the minimum gap between two sends, to stay under Gmail API rate limits
const SendInterval = 3 * time.Second

// Client sends booking emails through the Gmail API
type Client struct {
	service      *gmail.Service
	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// NewClient creates a Gmail client from a token that carries the gmail.send scope
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, token *oauth2.Token) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{service: service}, nil
}

// Send sends one HTML email. Calls are serialized and spaced by SendInterval.
func (c *Client) Send(ctx context.Context, email model.Email) (model.Delivery, error) {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if !c.lastSendTime.IsZero() {
		if wait := SendInterval - time.Since(c.lastSendTime); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return model.Delivery{}, ctx.Err()
			}
		}
	}

	raw := base64.URLEncoding.EncodeToString([]byte(buildMessage(email)))

	sent, err := c.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return model.Delivery{}, fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()

	return model.Delivery{ID: sent.Id}, nil
}

// buildMessage renders the RFC 822 message with an HTML body and an encoded subject
func buildMessage(email model.Email) string {
	from := email.From
	if email.FromName != "" {
		from = (&mail.Address{Name: email.FromName, Address: email.From}).String()
	}

	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.HTML)
	return b.String()
}
