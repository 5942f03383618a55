// Package sesclient sends booking emails through Amazon SES
package sesclient

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// API is the part of the SES client used here
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Client wraps an SES client
type Client struct {
	api API
}

// NewClient loads the default AWS configuration. region overrides the configured region
// when set.
func NewClient(ctx context.Context, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return New(ses.NewFromConfig(cfg)), nil
}

// New wraps an existing SES API
func New(api API) *Client {
	return &Client{api: api}
}

// Send delivers one HTML email and returns the SES message id
func (c *Client) Send(ctx context.Context, email model.Email) (model.Delivery, error) {
	source := email.From
	if email.FromName != "" {
		source = (&mail.Address{Name: email.FromName, Address: email.From}).String()
	}

	out, err := c.api.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &types.Destination{ToAddresses: []string{email.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(email.HTML), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return model.Delivery{}, fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}

	return model.Delivery{ID: aws.ToString(out.MessageId)}, nil
}
