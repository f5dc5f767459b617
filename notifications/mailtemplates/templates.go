package mailtemplates

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/apiplans/checkout-backend/notifications"
)

// files contains the HTML bodies of every mail template.
//
//go:embed templates/*.html
var files embed.FS

// TemplateFile represents an email template key. Every email template should
// have a key that identifies it, which is the filename without the extension.
type TemplateFile string

// MailTemplate struct represents an email template. It includes the file key
// and the notification placeholder to be sent. The notification placeholder
// includes the plain body template to be used as a fallback for email
// clients that do not support HTML, and the mail subject.
type MailTemplate struct {
	File        TemplateFile
	Placeholder notifications.Notification
}

// ExecTemplate renders the HTML template file and the plain body placeholder
// with the data provided. It returns the notification with the subject, body
// and plain body filled in, or an error if the template does not exist or
// cannot be executed.
func (mt MailTemplate) ExecTemplate(data any) (*notifications.Notification, error) {
	tmpl, err := htmltemplate.ParseFS(files, fmt.Sprintf("templates/%s.html", mt.File))
	if err != nil {
		return nil, fmt.Errorf("template %s not found: %w", mt.File, err)
	}
	n := &notifications.Notification{
		Subject:   mt.Placeholder.Subject,
		PlainBody: mt.Placeholder.PlainBody,
	}
	// inflate the template with the data
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return nil, err
	}
	n.Body = buf.String()
	if n.PlainBody != "" {
		tmpl, err := texttemplate.New("plain").Parse(n.PlainBody)
		if err != nil {
			return nil, err
		}
		buf := new(bytes.Buffer)
		if err := tmpl.Execute(buf, data); err != nil {
			return nil, err
		}
		n.PlainBody = buf.String()
	}
	return n, nil
}
