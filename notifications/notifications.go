// Package notifications defines the notification model and the contract
// implemented by the delivery services.
package notifications

import "context"

type Notification struct {
	ToName    string
	ToAddress string
	Subject   string
	Body      string
	PlainBody string
}

type NotificationService interface {
	Init(conf any) error
	SendNotification(context.Context, *Notification) error
}
