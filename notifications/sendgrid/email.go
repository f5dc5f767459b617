// Package sendgrid delivers notifications through the SendGrid v3 mail API.
package sendgrid

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/apiplans/checkout-backend/notifications"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendEndpoint = "/v3/mail/send"

// Config holds the SendGrid credentials and sender. Host is only set to
// point the client at a different API host.
type Config struct {
	FromName    string
	FromAddress string
	APIKey      string
	Host        string
}

// Email is the SendGrid implementation of the NotificationService interface.
type Email struct {
	config *Config
	client *sendgrid.Client
}

// Init validates the configuration and creates the SendGrid client.
func (sg *Email) Init(rawConfig any) error {
	config, ok := rawConfig.(*Config)
	if !ok {
		return fmt.Errorf("invalid SendGrid configuration")
	}
	if config.APIKey == "" {
		return fmt.Errorf("missing SendGrid API key")
	}
	if _, err := mail.ParseAddress(config.FromAddress); err != nil {
		return fmt.Errorf("could not parse from email: %v", err)
	}
	sg.config = config
	if config.Host == "" {
		sg.client = sendgrid.NewSendClient(config.APIKey)
		return nil
	}
	request := sendgrid.GetRequest(config.APIKey, sendEndpoint, config.Host)
	request.Method = http.MethodPost
	sg.client = &sendgrid.Client{Request: request}
	return nil
}

// SendNotification sends the notification as a single email with a plain
// text and an HTML body. Non 2XX answers from the API are returned as errors.
func (sg *Email) SendNotification(ctx context.Context, notification *notifications.Notification) error {
	from := sgmail.NewEmail(sg.config.FromName, sg.config.FromAddress)
	to := sgmail.NewEmail(notification.ToName, notification.ToAddress)
	message := sgmail.NewSingleEmail(from, notification.Subject, to, notification.PlainBody, notification.Body)
	resp, err := sg.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("could not send email: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid answered %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

var _ notifications.NotificationService = (*Email)(nil)
