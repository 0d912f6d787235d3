package events

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"storefront/internal/notify"
)

var emailTemplates = map[Type]struct {
	subject string
	body    *template.Template
}{
	OrderCreated: {
		subject: "Your order %s has been placed",
		body: template.Must(template.New("created").Parse(`<h2>Thank you{{if .CustomerName}}, {{.CustomerName}}{{end}}!</h2>
<p>We received your order <strong>{{.OrderNumber}}</strong>.</p>
<table>
{{range .Items}}<tr><td>{{.ProductName}}</td><td>x{{.Quantity}}</td><td>{{.LineTotal.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{.Total.StringFixed 2}}</strong></p>`)),
	},
	OrderCancelled: {
		subject: "Your order %s has been cancelled",
		body: template.Must(template.New("cancelled").Parse(`<h2>Order {{.OrderNumber}} cancelled</h2>
<p>Payment status: {{.PaymentStatus}}.</p>`)),
	},
	OrderStatusChanged: {
		subject: "Update on your order %s",
		body: template.Must(template.New("status").Parse(`<h2>Order {{.OrderNumber}} is now {{.OrderStatus}}</h2>
{{if .TrackingNumber}}<p>Tracking number: {{.TrackingNumber}}</p>{{end}}`)),
	},
}

// Dispatcher turns order events into customer emails.
type Dispatcher struct {
	notifier notify.Notifier
}

func NewDispatcher(notifier notify.Notifier) *Dispatcher {
	return &Dispatcher{notifier: notifier}
}

// Handle renders and sends the email for event. Events without a known
// template or a recipient are skipped.
func (d *Dispatcher) Handle(ctx context.Context, event OrderEvent) error {
	tmpl, ok := emailTemplates[event.Type]
	if !ok || event.Email == "" {
		return nil
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, event); err != nil {
		return fmt.Errorf("failed to render %s email: %w", event.Type, err)
	}
	return d.notifier.Send(ctx, notify.Message{
		To:      event.Email,
		Subject: fmt.Sprintf(tmpl.subject, event.OrderNumber),
		HTML:    body.String(),
	})
}
