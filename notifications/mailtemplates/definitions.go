// Package mailtemplates provides the email templates sent to customers along
// with the utilities to render them.
package mailtemplates

import "github.com/apiplans/checkout-backend/notifications"

// WelcomeData is the data rendered into WelcomeNotification.
type WelcomeData struct {
	Email  string
	APIKey string
	Plan   string
}

// WelcomeNotification is sent once, right after a new account is provisioned,
// and carries the issued API key.
var WelcomeNotification = MailTemplate{
	File: "welcome",
	Placeholder: notifications.Notification{
		Subject: "Your API key is ready",
		PlainBody: `Thanks for subscribing{{if .Plan}} to the {{.Plan}} plan{{end}}!

Your API key is: {{.APIKey}}

Send it in the Authorization header of every request. Keep it secret.`,
	},
}
