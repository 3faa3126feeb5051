package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// Message is a rendered notification ready for the external messaging
// service.
type Message struct {
	Title string
	Body  string
}

// MessageRenderer renders the three message kinds the system sends.
type MessageRenderer interface {
	RenderNotification(notification *Notification) (*Message, error)
	RenderConfirmSubscription(pendingID uuid.UUID) (*Message, error)
	RenderUnsubscribe(ref uuid.UUID, at time.Time) (*Message, error)
}

// MessageSender delivers a message to a user through the external messaging
// service.
type MessageSender interface {
	Send(userID uuid.UUID, message *Message) error
}

const notificationBody = `The following events were detected at {{.Time.Format "2006-01-02 15:04 MST"}}:
{{range .Events}}
  * [{{.Source}}] {{.Type}}: {{.Data}}{{end}}

You receive this message because you subscribed to these event sources.
`

const confirmBody = `Please confirm your subscription by following the link below:

  /confirm/{{.}}

If you did not request this subscription you can ignore this message.
`

const unsubscribeBody = `Your subscription {{.Ref}} was cancelled at {{.At.Format "2006-01-02 15:04 MST"}}.
`

// TemplateRenderer implements MessageRenderer with text templates.
type TemplateRenderer struct {
	notification *template.Template
	confirm      *template.Template
	unsubscribe  *template.Template
}

// NewTemplateRenderer ...
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{
		notification: template.Must(template.New("notification").Parse(notificationBody)),
		confirm:      template.Must(template.New("confirm").Parse(confirmBody)),
		unsubscribe:  template.Must(template.New("unsubscribe").Parse(unsubscribeBody)),
	}
}

// RenderNotification implements the MessageRenderer interface.
func (r *TemplateRenderer) RenderNotification(notification *Notification) (*Message, error) {
	body := new(bytes.Buffer)
	if err := r.notification.Execute(body, notification); err != nil {
		return nil, fmt.Errorf("rendering notification: %v", err)
	}
	return &Message{
		Title: fmt.Sprintf("%d event(s) detected", len(notification.Events)),
		Body:  body.String(),
	}, nil
}

// RenderConfirmSubscription implements the MessageRenderer interface.
func (r *TemplateRenderer) RenderConfirmSubscription(pendingID uuid.UUID) (*Message, error) {
	body := new(bytes.Buffer)
	if err := r.confirm.Execute(body, pendingID); err != nil {
		return nil, fmt.Errorf("rendering confirmation: %v", err)
	}
	return &Message{
		Title: "Confirm your subscription",
		Body:  body.String(),
	}, nil
}

// RenderUnsubscribe implements the MessageRenderer interface.
func (r *TemplateRenderer) RenderUnsubscribe(ref uuid.UUID, at time.Time) (*Message, error) {
	body := new(bytes.Buffer)
	err := r.unsubscribe.Execute(body, struct {
		Ref uuid.UUID
		At  time.Time
	}{ref, at})
	if err != nil {
		return nil, fmt.Errorf("rendering unsubscribe: %v", err)
	}
	return &Message{
		Title: "Subscription cancelled",
		Body:  body.String(),
	}, nil
}
